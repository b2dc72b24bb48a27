package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// SchemaUseCase resolves entity schemas from FIELD and ENTITY records
type SchemaUseCase struct {
	api   interfaces.RecordAPI
	cache *schemaCache
}

// NewSchemaUseCase creates a SchemaUseCase. A nil cache disables caching.
func NewSchemaUseCase(api interfaces.RecordAPI, cache *schemaCache) *SchemaUseCase {
	return &SchemaUseCase{api: api, cache: cache}
}

// ResolveSchema fetches the field records and the descriptor of entityName
// concurrently and composes them. Every failure is classified with
// model.ErrSchemaResolution; the underlying *model.APIError stays reachable
// through errors.As. An entity without fields resolves to an empty schema.
func (uc *SchemaUseCase) ResolveSchema(ctx context.Context, entityName string) (*model.EntitySchema, error) {
	name := types.NewEntityName(entityName)
	if err := name.Validate(); err != nil {
		return nil, errors.Join(model.ErrSchemaResolution,
			goerr.Wrap(ErrInvalidEntityName, "cannot resolve schema", goerr.V(model.EntityNameKey, entityName)))
	}

	if schema, ok := uc.cache.get(name); ok {
		return schema, nil
	}

	var (
		fields []model.FieldSchema
		raw    map[string]any
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rec, err := uc.api.GetEntityRecords(egCtx, types.EntityOfFields, "entity=="+name.String())
		if err != nil {
			return goerr.Wrap(err, "failed to fetch field records", goerr.V(model.EntityNameKey, name))
		}
		records, err := rec.Records()
		if err != nil {
			return goerr.Wrap(err, "field query did not return a list", goerr.V(model.EntityNameKey, name))
		}

		parsed := make([]model.FieldSchema, 0, len(records))
		for i, r := range records {
			f, err := model.ParseFieldSchema(r)
			if err != nil {
				return goerr.Wrap(err, "failed to parse field record",
					goerr.V(model.EntityNameKey, name),
					goerr.V("index", i))
			}
			parsed = append(parsed, f)
		}
		fields = parsed
		return nil
	})
	eg.Go(func() error {
		rec, err := uc.api.GetEntityRecord(egCtx, types.EntityOfEntities, name.String())
		if err != nil {
			return goerr.Wrap(err, "failed to fetch entity descriptor", goerr.V(model.EntityNameKey, name))
		}
		payload, err := rec.Payload()
		if err != nil {
			return goerr.Wrap(err, "entity descriptor is not an object", goerr.V(model.EntityNameKey, name))
		}
		raw = payload
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, errors.Join(model.ErrSchemaResolution, err)
	}

	schema, err := model.NewEntitySchema(name, raw, fields)
	if err != nil {
		return nil, errors.Join(model.ErrSchemaResolution, err)
	}

	logging.From(ctx).Debug("resolved entity schema",
		"entity", name,
		"fields", len(schema.Fields),
	)

	uc.cache.set(schema)
	return schema, nil
}

// Invalidate drops a cached schema so the next resolution refetches it
func (uc *SchemaUseCase) Invalidate(ctx context.Context, name types.EntityName) {
	if uc.cache == nil {
		return
	}
	uc.cache.remove(name)
	logging.From(ctx).Debug("schema cache invalidated", "entity", name)
}

// invalidateFor drops the cached schema affected by a newly created meta record
func (uc *SchemaUseCase) invalidateFor(ctx context.Context, entity types.EntityName, payload map[string]any) {
	var target any
	switch entity {
	case types.EntityOfEntities:
		target = payload["name"]
	case types.EntityOfFields:
		target = payload["entity"]
	default:
		return
	}
	if s, ok := target.(string); ok {
		uc.Invalidate(ctx, types.NewEntityName(s))
	} else if target != nil {
		uc.Invalidate(ctx, types.NewEntityName(fmt.Sprint(target)))
	}
}

// DeclaredEntities lists the names of all ENTITY records
func (uc *SchemaUseCase) DeclaredEntities(ctx context.Context) ([]string, error) {
	rec, err := uc.api.GetEntityRecords(ctx, types.EntityOfEntities, "")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list entities")
	}
	records, err := rec.Records()
	if err != nil {
		return nil, goerr.Wrap(err, "entity list has unexpected shape")
	}

	var names []string
	for _, r := range records {
		payload, err := r.Payload()
		if err != nil {
			continue
		}
		if name, ok := payload["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Refresh re-resolves the schema of every declared entity so that cached
// schemas pick up changes made outside this process. Entities failing to
// resolve are logged and skipped. It returns the number of refreshed schemas.
func (uc *SchemaUseCase) Refresh(ctx context.Context) (int, error) {
	names, err := uc.DeclaredEntities(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, name := range names {
		uc.Invalidate(ctx, types.NewEntityName(name))
		if _, err := uc.ResolveSchema(ctx, name); err != nil {
			logging.From(ctx).Warn("failed to refresh entity schema", "entity", name, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
