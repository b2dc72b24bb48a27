package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
)

// SeedUseCase loads declared entities and records into a record API
type SeedUseCase struct {
	api    interfaces.RecordAPI
	schema *SchemaUseCase
}

func NewSeedUseCase(api interfaces.RecordAPI, schema *SchemaUseCase) *SeedUseCase {
	return &SeedUseCase{api: api, schema: schema}
}

// SeedResult counts what Apply did
type SeedResult struct {
	Created int
	Skipped int
}

// Apply creates the ENTITY, FIELD and data records of seed. Records that
// already exist are skipped, so applying the same seed twice is harmless.
// Data record values are coerced through the entity schema first.
func (uc *SeedUseCase) Apply(ctx context.Context, seed *model.Seed) (*SeedResult, error) {
	result := &SeedResult{}

	for i, e := range seed.Entities {
		name := types.NewEntityName(e.Name)
		if err := name.Validate(); err != nil {
			return nil, goerr.Wrap(ErrInvalidSeed, "invalid entity name",
				goerr.V(SeedIndexKey, i),
				goerr.V(SeedEntityKey, e.Name))
		}

		if err := uc.create(ctx, types.EntityOfEntities, e.DescriptorPayload(), result); err != nil {
			return nil, goerr.Wrap(err, "failed to seed entity", goerr.V(SeedEntityKey, name))
		}
		for _, f := range e.Fields {
			if err := uc.create(ctx, types.EntityOfFields, f.FieldPayload(name), result); err != nil {
				return nil, goerr.Wrap(err, "failed to seed field",
					goerr.V(SeedEntityKey, name),
					goerr.V(model.FieldNameKey, f.Name))
			}
		}
		uc.schema.Invalidate(ctx, name)
	}

	for _, e := range seed.Entities {
		if len(e.Records) == 0 {
			continue
		}
		schema, err := uc.schema.ResolveSchema(ctx, e.Name)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve seeded entity", goerr.V(SeedEntityKey, e.Name))
		}

		for i, raw := range e.Records {
			payload, err := encodeRecord(schema, raw)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid seed record",
					goerr.V(SeedEntityKey, schema.Name),
					goerr.V(SeedIndexKey, i))
			}
			if err := uc.create(ctx, schema.Name, payload, result); err != nil {
				return nil, goerr.Wrap(err, "failed to seed record",
					goerr.V(SeedEntityKey, schema.Name),
					goerr.V(SeedIndexKey, i))
			}
		}
	}

	logging.From(ctx).Info("schema seed applied",
		"entities", len(seed.Entities),
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (uc *SeedUseCase) create(ctx context.Context, entity types.EntityName, payload map[string]any, result *SeedResult) error {
	_, err := uc.api.CreateEntityRecord(ctx, entity, payload)
	switch {
	case err == nil:
		result.Created++
		return nil
	case errors.Is(err, model.ErrRecordConflict):
		result.Skipped++
		return nil
	default:
		return err
	}
}

// encodeRecord coerces raw values by field type and returns the wire payload.
// Attributes without a field declaration are passed through.
func encodeRecord(schema *model.EntitySchema, raw map[string]any) (map[string]any, error) {
	payload := make(map[string]any, len(raw))
	for k, v := range raw {
		f, ok := schema.Field(k)
		if !ok {
			payload[k] = v
			continue
		}
		coerced, err := model.CoerceValue(f.Type, v)
		if err != nil {
			return nil, goerr.Wrap(err, "field value does not match its type", goerr.V(model.FieldNameKey, f.Name))
		}
		payload[f.Name] = model.EncodeValue(f.Type, coerced)
	}
	return payload, nil
}
