package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/repository/memory"
	"github.com/secmon-lab/metaform/pkg/usecase"
)

func TestResolveSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("composes fields and descriptor", func(t *testing.T) {
		uc, _ := newCustomerUseCases(t)

		schema, err := uc.Schema.ResolveSchema(ctx, "customer")
		gt.NoError(t, err).Required()
		gt.Value(t, schema.Name).Equal(types.EntityName("CUSTOMER"))
		gt.Array(t, schema.Fields).Length(3)
		gt.Value(t, schema.DisplayName()).Equal("Customer")

		display := schema.DisplayFields()
		gt.Value(t, display[0].Name).Equal("name")
		gt.Value(t, display[1].Name).Equal("active")
		gt.Value(t, display[2].Name).Equal("since")
	})

	t.Run("entity without fields resolves to empty schema", func(t *testing.T) {
		repo := memory.New()
		declareEntity(t, repo, "GHOST", nil)
		uc, err := usecase.New(repo)
		gt.NoError(t, err).Required()

		schema, err := uc.Schema.ResolveSchema(ctx, "GHOST")
		gt.NoError(t, err).Required()
		gt.Array(t, schema.Fields).Length(0)
	})

	t.Run("undeclared entity is a schema resolution error", func(t *testing.T) {
		uc, _ := newCustomerUseCases(t)

		schema, err := uc.Schema.ResolveSchema(ctx, "UNKNOWN")
		gt.Value(t, schema).Nil()
		gt.Error(t, err).Is(model.ErrSchemaResolution)
		gt.Error(t, err).Is(model.ErrRecordNotFound)

		var apiErr *model.APIError
		gt.Bool(t, errors.As(err, &apiErr)).True()
		gt.Number(t, apiErr.Status).Equal(http.StatusNotFound)
	})

	t.Run("field query failure is a schema resolution error", func(t *testing.T) {
		_, repo := newCustomerUseCases(t)
		api := &stubAPI{
			RecordAPI: repo,
			getRecords: func(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
				return nil, &model.APIError{Status: http.StatusInternalServerError, Message: "boom", ErrorCode: "INTERNAL"}
			},
		}
		uc, err := usecase.New(api)
		gt.NoError(t, err).Required()

		_, err = uc.Schema.ResolveSchema(ctx, "CUSTOMER")
		gt.Error(t, err).Is(model.ErrSchemaResolution)
		gt.Error(t, err).Contains("boom")
	})

	t.Run("broken field record is a schema resolution error", func(t *testing.T) {
		_, repo := newCustomerUseCases(t)
		api := &stubAPI{
			RecordAPI: repo,
			getRecords: func(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
				return model.NewEntityRecordList([]*model.EntityRecord{
					model.NewEntityRecord(map[string]any{"name": "x", "type": "COLOR"}),
				}), nil
			},
		}
		uc, err := usecase.New(api)
		gt.NoError(t, err).Required()

		_, err = uc.Schema.ResolveSchema(ctx, "CUSTOMER")
		gt.Error(t, err).Is(model.ErrSchemaResolution)
		gt.Error(t, err).Is(model.ErrInvalidFieldSchema)
	})

	t.Run("invalid entity name", func(t *testing.T) {
		uc, _ := newCustomerUseCases(t)
		_, err := uc.Schema.ResolveSchema(ctx, "  ")
		gt.Error(t, err).Is(model.ErrSchemaResolution)
		gt.Error(t, err).Is(usecase.ErrInvalidEntityName)
	})

	t.Run("queries FIELD by entity name", func(t *testing.T) {
		_, repo := newCustomerUseCases(t)
		var gotFilter string
		var gotEntity types.EntityName
		api := &stubAPI{
			RecordAPI: repo,
			getRecords: func(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
				gotEntity = entity
				gotFilter = filter
				return repo.GetEntityRecords(ctx, entity, filter)
			},
		}
		uc, err := usecase.New(api)
		gt.NoError(t, err).Required()

		_, err = uc.Schema.ResolveSchema(ctx, "customer")
		gt.NoError(t, err).Required()
		gt.Value(t, gotEntity).Equal(types.EntityOfFields)
		gt.Value(t, gotFilter).Equal("entity==CUSTOMER")
	})
}

func TestResolveSchema_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled by default", func(t *testing.T) {
		_, repo := newCustomerUseCases(t)
		api := &stubAPI{RecordAPI: repo}
		uc, err := usecase.New(api)
		gt.NoError(t, err).Required()

		for range 2 {
			_, err := uc.Schema.ResolveSchema(ctx, "CUSTOMER")
			gt.NoError(t, err).Required()
		}
		gt.Number(t, api.getRecordsCalls.Load()).Equal(2)
		gt.Number(t, api.getRecordCalls.Load()).Equal(2)
	})

	t.Run("reuses schema within TTL", func(t *testing.T) {
		_, repo := newCustomerUseCases(t)
		api := &stubAPI{RecordAPI: repo}
		uc, err := usecase.New(api, usecase.WithSchemaCacheTTL(time.Hour))
		gt.NoError(t, err).Required()

		first, err := uc.Schema.ResolveSchema(ctx, "CUSTOMER")
		gt.NoError(t, err).Required()
		second, err := uc.Schema.ResolveSchema(ctx, "customer")
		gt.NoError(t, err).Required()

		gt.Value(t, second).Equal(first)
		gt.Number(t, api.getRecordsCalls.Load()).Equal(1)
	})

	t.Run("field creation through a form invalidates the entity", func(t *testing.T) {
		_, repo := newCustomerUseCases(t)
		api := &stubAPI{RecordAPI: repo}
		declareEntity(t, repo, "FIELD", nil,
			model.FieldSchema{Name: "entity", Type: types.FieldTypeText, IsLogicalKey: true},
			model.FieldSchema{Name: "name", Type: types.FieldTypeText, IsLogicalKey: true},
			model.FieldSchema{Name: "type", Type: types.FieldTypeText},
		)
		uc, err := usecase.New(api, usecase.WithSchemaCacheTTL(time.Hour))
		gt.NoError(t, err).Required()

		schema, err := uc.Schema.ResolveSchema(ctx, "CUSTOMER")
		gt.NoError(t, err).Required()
		gt.Array(t, schema.Fields).Length(3)

		form, err := uc.Form.BuildForm(ctx, "FIELD")
		gt.NoError(t, err).Required()
		defer form.Close()
		for name, value := range map[string]any{"entity": "CUSTOMER", "name": "email", "type": "TEXT"} {
			field, ok := form.Field(name)
			gt.Bool(t, ok).True().Required()
			gt.NoError(t, field.Control.SetValue(value)).Required()
		}
		_, err = form.Submit(ctx)
		gt.NoError(t, err).Required()

		schema, err = uc.Schema.ResolveSchema(ctx, "CUSTOMER")
		gt.NoError(t, err).Required()
		gt.Array(t, schema.Fields).Length(4)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		_, repo := newCustomerUseCases(t)
		fail := true
		api := &stubAPI{
			RecordAPI: repo,
			getRecord: func(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error) {
				if fail {
					return nil, &model.APIError{Status: http.StatusServiceUnavailable, ErrorCode: "NETWORK_ERROR"}
				}
				return repo.GetEntityRecord(ctx, entity, key)
			},
		}
		uc, err := usecase.New(api, usecase.WithSchemaCacheTTL(time.Hour))
		gt.NoError(t, err).Required()

		_, err = uc.Schema.ResolveSchema(ctx, "CUSTOMER")
		gt.Error(t, err).Is(model.ErrSchemaResolution)

		fail = false
		_, err = uc.Schema.ResolveSchema(ctx, "CUSTOMER")
		gt.NoError(t, err)
	})
}

func TestSchemaRefresh(t *testing.T) {
	ctx := context.Background()
	_, repo := newCustomerUseCases(t)
	declareEntity(t, repo, "GHOST", nil)
	uc, err := usecase.New(repo, usecase.WithSchemaCacheTTL(time.Hour))
	gt.NoError(t, err).Required()

	names, err := uc.Schema.DeclaredEntities(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, names).Length(2)

	schema, err := uc.Schema.ResolveSchema(ctx, "CUSTOMER")
	gt.NoError(t, err).Required()
	gt.Array(t, schema.Fields).Length(3)

	// written behind the cache
	email := model.FieldSchema{Name: "email", Entity: "CUSTOMER", Type: types.FieldTypeText}
	_, err = repo.CreateEntityRecord(ctx, types.EntityOfFields, email.Payload())
	gt.NoError(t, err).Required()

	schema, err = uc.Schema.ResolveSchema(ctx, "CUSTOMER")
	gt.NoError(t, err).Required()
	gt.Array(t, schema.Fields).Length(3)

	n, err := uc.Schema.Refresh(ctx)
	gt.NoError(t, err).Required()
	gt.Equal(t, n, 2)

	schema, err = uc.Schema.ResolveSchema(ctx, "CUSTOMER")
	gt.NoError(t, err).Required()
	gt.Array(t, schema.Fields).Length(4)
}
