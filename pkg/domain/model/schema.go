package model

import (
	"cmp"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// GUISettings holds display hints of a field
type GUISettings struct {
	UseAsDesc bool    `json:"useAsDesc"`
	SortKey   float64 `json:"sortKey"`
}

// FieldSchema describes one field of an entity. Values are built by
// ParseFieldSchema and never mutated afterwards.
type FieldSchema struct {
	Name         string          `json:"name"`
	Entity       string          `json:"entity,omitempty"`
	Type         types.FieldType `json:"type"`
	IsLogicalKey bool            `json:"isLogicalKey"`
	RefEntity    string          `json:"refEntity,omitempty"`
	GUISettings  GUISettings     `json:"guiSettings"`
}

// EntitySchema is the metadata of one entity: its descriptor record and its fields
type EntitySchema struct {
	Name   types.EntityName
	Raw    map[string]any
	Fields []FieldSchema // fetch order
}

// NewEntitySchema composes an EntitySchema, rejecting duplicate field names
func NewEntitySchema(name types.EntityName, raw map[string]any, fields []FieldSchema) (*EntitySchema, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		key := strings.ToLower(f.Name)
		if seen[key] {
			return nil, goerr.Wrap(ErrDuplicateField, "field name is declared twice",
				goerr.V(EntityNameKey, name),
				goerr.V(FieldNameKey, f.Name))
		}
		seen[key] = true
	}

	if raw == nil {
		raw = map[string]any{}
	}
	copied := make([]FieldSchema, len(fields))
	copy(copied, fields)

	return &EntitySchema{
		Name:   name,
		Raw:    raw,
		Fields: copied,
	}, nil
}

// DisplayFields returns the fields ordered by GUISettings.SortKey ascending.
// Fields sharing a sort key keep their fetch order.
func (s *EntitySchema) DisplayFields() []FieldSchema {
	sorted := slices.Clone(s.Fields)
	slices.SortStableFunc(sorted, func(a, b FieldSchema) int {
		return cmp.Compare(a.GUISettings.SortKey, b.GUISettings.SortKey)
	})
	return sorted
}

// Field looks up a field by name (case-insensitive)
func (s *EntitySchema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// LogicalKeyFields returns the logical key fields sorted by name
func (s *EntitySchema) LogicalKeyFields() []FieldSchema {
	var keys []FieldSchema
	for _, f := range s.Fields {
		if f.IsLogicalKey {
			keys = append(keys, f)
		}
	}
	slices.SortFunc(keys, func(a, b FieldSchema) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return keys
}

// LogicalKeyNames returns the names of LogicalKeyFields
func (s *EntitySchema) LogicalKeyNames() []string {
	keys := s.LogicalKeyFields()
	names := make([]string, len(keys))
	for i, f := range keys {
		names[i] = f.Name
	}
	return names
}

// DescFields returns the fields used as the human-readable label, in display order
func (s *EntitySchema) DescFields() []FieldSchema {
	var desc []FieldSchema
	for _, f := range s.DisplayFields() {
		if f.GUISettings.UseAsDesc {
			desc = append(desc, f)
		}
	}
	return desc
}

// DisplayName returns the descriptor's displayName, falling back to the entity name
func (s *EntitySchema) DisplayName() string {
	if v, ok := s.Raw["displayName"].(string); ok && v != "" {
		return v
	}
	return s.Name.String()
}
