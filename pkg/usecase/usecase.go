package usecase

import (
	"time"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/service/messages"
)

type UseCases struct {
	api            interfaces.RecordAPI
	registry       *model.ComponentRegistry
	messages       interfaces.Messages
	notifier       interfaces.Notifier
	schemaCacheTTL time.Duration

	Schema       *SchemaUseCase
	Form         *FormUseCase
	EntityRecord *EntityRecordUseCase
	Seed         *SeedUseCase
}

type Option func(*UseCases)

// WithComponentRegistry replaces the default field type to widget table
func WithComponentRegistry(registry *model.ComponentRegistry) Option {
	return func(uc *UseCases) {
		uc.registry = registry
	}
}

// WithMessages sets the translation catalog used for user notifications
func WithMessages(m interfaces.Messages) Option {
	return func(uc *UseCases) {
		uc.messages = m
	}
}

// WithNotifier mirrors every user notification to n (e.g. Slack) in
// addition to the per-view presenter. Without it only the presenter is
// notified.
func WithNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

// WithSchemaCacheTTL enables schema caching. Zero disables it.
func WithSchemaCacheTTL(ttl time.Duration) Option {
	return func(uc *UseCases) {
		uc.schemaCacheTTL = ttl
	}
}

// New wires the use cases around a record API. It fails only when the
// default component registry is incomplete.
func New(api interfaces.RecordAPI, opts ...Option) (*UseCases, error) {
	uc := &UseCases{
		api:      api,
		messages: messages.New(nil),
	}
	for _, opt := range opts {
		opt(uc)
	}

	if uc.registry == nil {
		registry, err := model.NewComponentRegistry(model.DefaultComponentBindings())
		if err != nil {
			return nil, err
		}
		uc.registry = registry
	}

	var cache *schemaCache
	if uc.schemaCacheTTL > 0 {
		cache = newSchemaCache(uc.schemaCacheTTL)
	}

	uc.Schema = NewSchemaUseCase(api, cache)
	uc.Form = NewFormUseCase(api, uc.Schema, uc.registry)
	uc.EntityRecord = NewEntityRecordUseCase(api, uc.Schema, uc.Form, uc.messages, uc.notifier)
	uc.Seed = NewSeedUseCase(api, uc.Schema)

	return uc, nil
}

// Registry returns the component registry in use
func (uc *UseCases) Registry() *model.ComponentRegistry {
	return uc.registry
}

// Messages returns the translation catalog in use
func (uc *UseCases) Messages() interfaces.Messages {
	return uc.messages
}

// API returns the record API the use cases talk to
func (uc *UseCases) API() interfaces.RecordAPI {
	return uc.api
}
