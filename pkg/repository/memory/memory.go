package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// Memory is an in-process record store. Records of each entity are kept in
// creation order.
type Memory struct {
	mu     sync.RWMutex
	tables map[types.EntityName][]map[string]any
	newID  func() string
}

var _ interfaces.RecordRepository = &Memory{}

// Option configures Memory
type Option func(*Memory)

// WithIDGenerator replaces the uuid generator used for record ids
func WithIDGenerator(fn func() string) Option {
	return func(m *Memory) {
		m.newID = fn
	}
}

func New(opts ...Option) *Memory {
	m := &Memory{
		tables: make(map[types.EntityName][]map[string]any),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) GetEntityRecord(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "context cancelled", goerr.V(model.EntityNameKey, entity))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.entityExistsLocked(entity) {
		return nil, model.NewEntityNotFoundError(entity.String())
	}
	if payload := m.findLocked(entity, key); payload != nil {
		return model.NewEntityRecord(model.ClonePayload(payload)), nil
	}
	return nil, model.NewNotFoundError(entity.String(), key)
}

func (m *Memory) GetEntityRecords(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "context cancelled", goerr.V(model.EntityNameKey, entity))
	}

	f, err := model.ParseFilter(filter)
	if err != nil {
		return nil, model.NewBadRequestError("INVALID_FILTER", err.Error())
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.entityExistsLocked(entity) {
		return nil, model.NewEntityNotFoundError(entity.String())
	}

	records := []*model.EntityRecord{}
	for _, payload := range m.tables[entity] {
		if f.Match(payload) {
			records = append(records, model.NewEntityRecord(model.ClonePayload(payload)))
		}
	}
	return model.NewEntityRecordList(records), nil
}

func (m *Memory) CreateEntityRecord(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "context cancelled", goerr.V(model.EntityNameKey, entity))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.entityExistsLocked(entity) {
		return nil, model.NewEntityNotFoundError(entity.String())
	}

	prepared, key, err := model.PrepareNewRecord(entity, model.ClonePayload(payload), m.keyNamesLocked(entity), m.newID)
	if err != nil {
		return nil, err
	}
	if m.findLocked(entity, key) != nil {
		return nil, model.NewConflictError(entity.String(), key)
	}

	m.tables[entity] = append(m.tables[entity], prepared)
	return model.NewEntityRecord(model.ClonePayload(prepared)), nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }

func (m *Memory) entityExistsLocked(entity types.EntityName) bool {
	if entity.IsMeta() {
		return true
	}
	return m.findLocked(types.EntityOfEntities, entity.String()) != nil
}

func (m *Memory) keyNamesLocked(entity types.EntityName) []string {
	if names := model.MetaKeyNames(entity); names != nil {
		return names
	}
	var fields []*model.EntityRecord
	filter := model.Filter{Attribute: "entity", Value: entity.String()}
	for _, payload := range m.tables[types.EntityOfFields] {
		if filter.Match(payload) {
			fields = append(fields, model.NewEntityRecord(payload))
		}
	}
	return model.KeyNamesFromFields(fields)
}

func (m *Memory) findLocked(entity types.EntityName, key string) map[string]any {
	names := m.keyNamesLocked(entity)
	for _, payload := range m.tables[entity] {
		if k, ok := model.RecordKey(payload, names); ok && k == key {
			return payload
		}
	}
	return nil
}
