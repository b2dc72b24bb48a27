package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// ComponentRegistry maps every field type to the widget that renders it.
// It is immutable after construction.
type ComponentRegistry struct {
	bindings map[types.FieldType]ComponentMeta
}

// DefaultComponentBindings returns the built-in field type to widget table
func DefaultComponentBindings() map[types.FieldType]ComponentMeta {
	return map[types.FieldType]ComponentMeta{
		types.FieldTypeText: {
			Widget: types.WidgetInput,
			Config: WidgetConfig{InputType: "text"},
		},
		types.FieldTypeNumber: {
			Widget: types.WidgetInput,
			Config: WidgetConfig{InputType: "number", Step: 1},
		},
		types.FieldTypeLong: {
			Widget: types.WidgetInput,
			Config: WidgetConfig{InputType: "number", Step: 1},
		},
		types.FieldTypeDouble: {
			Widget: types.WidgetInput,
			Config: WidgetConfig{InputType: "number", Step: 0.01},
		},
		types.FieldTypeBool: {
			Widget: types.WidgetToggle,
		},
		types.FieldTypeTime: {
			Widget: types.WidgetCalendar,
			Config: WidgetConfig{TimeOnly: true, DateFormat: TimeLayout},
		},
		types.FieldTypeDate: {
			Widget: types.WidgetCalendar,
			Config: WidgetConfig{DateFormat: DateLayout},
		},
		types.FieldTypeDateTime: {
			Widget: types.WidgetCalendar,
			Config: WidgetConfig{ShowTime: true, DateFormat: DateTimeLayout},
		},
		types.FieldTypeEntityRef: {
			Widget: types.WidgetRefPicker,
		},
		types.FieldTypeRecord: {
			Widget: types.WidgetRecord,
		},
	}
}

// NewComponentRegistry validates that bindings cover every field type with a
// known widget kind. Any gap is an ErrConfiguration.
func NewComponentRegistry(bindings map[types.FieldType]ComponentMeta) (*ComponentRegistry, error) {
	for t := range bindings {
		if !t.IsValid() {
			return nil, goerr.Wrap(ErrConfiguration, "binding for unknown field type",
				goerr.V(FieldTypeKey, t))
		}
	}

	copied := make(map[types.FieldType]ComponentMeta, len(bindings))
	for _, t := range types.AllFieldTypes() {
		meta, ok := bindings[t]
		if !ok {
			return nil, goerr.Wrap(ErrConfiguration, "no widget bound to field type",
				goerr.V(FieldTypeKey, t))
		}
		if !meta.Widget.IsValid() {
			return nil, goerr.Wrap(ErrConfiguration, "unknown widget kind",
				goerr.V(FieldTypeKey, t),
				goerr.V(WidgetKindKey, meta.Widget))
		}
		copied[t] = meta
	}

	return &ComponentRegistry{bindings: copied}, nil
}

// Resolve returns the widget binding of field. The config is a copy of the
// per-type defaults; ENTITY_REF bindings carry the referenced entity.
func (r *ComponentRegistry) Resolve(field FieldSchema) (ComponentMeta, error) {
	meta, ok := r.bindings[field.Type]
	if !ok {
		return ComponentMeta{}, goerr.Wrap(ErrConfiguration, "no widget bound to field type",
			goerr.V(FieldNameKey, field.Name),
			goerr.V(FieldTypeKey, field.Type))
	}

	if field.Type == types.FieldTypeEntityRef {
		if field.RefEntity == "" {
			return ComponentMeta{}, goerr.Wrap(ErrConfiguration, "reference field has no refEntity",
				goerr.V(FieldNameKey, field.Name))
		}
		meta.Config.RefEntity = field.RefEntity
	}
	return meta, nil
}

// Bindings returns the table in AllFieldTypes order
func (r *ComponentRegistry) Bindings() []ComponentBinding {
	result := make([]ComponentBinding, 0, len(r.bindings))
	for _, t := range types.AllFieldTypes() {
		result = append(result, ComponentBinding{Type: t, Component: r.bindings[t]})
	}
	return result
}

// ComponentBinding is one row of the registry table
type ComponentBinding struct {
	Type      types.FieldType
	Component ComponentMeta
}
