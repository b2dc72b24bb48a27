package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// FormUseCase builds dynamic forms from resolved schemas
type FormUseCase struct {
	api      interfaces.RecordAPI
	schema   *SchemaUseCase
	registry *model.ComponentRegistry
}

func NewFormUseCase(api interfaces.RecordAPI, schema *SchemaUseCase, registry *model.ComponentRegistry) *FormUseCase {
	return &FormUseCase{api: api, schema: schema, registry: registry}
}

// BuildForm resolves the schema of entityName and assembles one control and
// one widget binding per field, in display order. It returns either a form
// or an error, never both.
func (uc *FormUseCase) BuildForm(ctx context.Context, entityName string) (*model.FormStatus, error) {
	schema, err := uc.schema.ResolveSchema(ctx, entityName)
	if err != nil {
		return nil, err
	}
	return uc.buildFormFromSchema(schema)
}

func (uc *FormUseCase) buildFormFromSchema(schema *model.EntitySchema) (*model.FormStatus, error) {
	display := schema.DisplayFields()
	fields := make([]*model.FormFieldStatus, 0, len(display))

	for _, f := range display {
		component, err := uc.registry.Resolve(f)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to bind widget",
				goerr.V(model.EntityNameKey, schema.Name),
				goerr.V(model.FieldNameKey, f.Name))
		}

		var validators []model.Validator
		if f.IsLogicalKey {
			validators = append(validators, model.Required)
		}

		fields = append(fields, &model.FormFieldStatus{
			Field:     f,
			Control:   model.NewControl(f, validators...),
			Component: component,
		})
	}

	return model.NewFormStatus(schema, fields, uc.submit), nil
}

func (uc *FormUseCase) submit(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
	rec, err := uc.api.CreateEntityRecord(ctx, entity, payload)
	if err != nil {
		return nil, err
	}
	if entity.IsMeta() {
		uc.schema.invalidateFor(ctx, entity, payload)
	}
	return rec, nil
}
