package usecase_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/repository/memory"
	"github.com/secmon-lab/metaform/pkg/usecase"
)

func customerFields() []model.FieldSchema {
	return []model.FieldSchema{
		{Name: "since", Type: types.FieldTypeDate, GUISettings: model.GUISettings{SortKey: 3}},
		{Name: "name", Type: types.FieldTypeText, GUISettings: model.GUISettings{SortKey: 1, UseAsDesc: true}},
		{Name: "active", Type: types.FieldTypeBool, GUISettings: model.GUISettings{SortKey: 2}},
	}
}

func declareEntity(t *testing.T, api interfaces.RecordAPI, entity string, raw map[string]any, fields ...model.FieldSchema) {
	t.Helper()
	ctx := context.Background()

	payload := map[string]any{"name": entity}
	for k, v := range raw {
		payload[k] = v
	}
	_, err := api.CreateEntityRecord(ctx, types.EntityOfEntities, payload)
	gt.NoError(t, err).Required()

	for _, f := range fields {
		f.Entity = entity
		_, err := api.CreateEntityRecord(ctx, types.EntityOfFields, f.Payload())
		gt.NoError(t, err).Required()
	}
}

func newCustomerUseCases(t *testing.T, opts ...usecase.Option) (*usecase.UseCases, *memory.Memory) {
	t.Helper()
	repo := memory.New(memory.WithIDGenerator(func() string { return "c-1" }))
	declareEntity(t, repo, "CUSTOMER", map[string]any{"displayName": "Customer"}, customerFields()...)

	uc, err := usecase.New(repo, opts...)
	gt.NoError(t, err).Required()
	return uc, repo
}

// stubAPI overrides selected RecordAPI methods and counts calls
type stubAPI struct {
	interfaces.RecordAPI

	getRecord  func(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error)
	getRecords func(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error)
	create     func(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error)

	getRecordCalls  atomic.Int32
	getRecordsCalls atomic.Int32
	createCalls     atomic.Int32
}

func (s *stubAPI) GetEntityRecord(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error) {
	s.getRecordCalls.Add(1)
	if s.getRecord != nil {
		return s.getRecord(ctx, entity, key)
	}
	return s.RecordAPI.GetEntityRecord(ctx, entity, key)
}

func (s *stubAPI) GetEntityRecords(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
	s.getRecordsCalls.Add(1)
	if s.getRecords != nil {
		return s.getRecords(ctx, entity, filter)
	}
	return s.RecordAPI.GetEntityRecords(ctx, entity, filter)
}

func (s *stubAPI) CreateEntityRecord(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
	s.createCalls.Add(1)
	if s.create != nil {
		return s.create(ctx, entity, payload)
	}
	return s.RecordAPI.CreateEntityRecord(ctx, entity, payload)
}
