package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// FieldType represents the declared type of an entity field
type FieldType string

const (
	FieldTypeText      FieldType = "TEXT"
	FieldTypeNumber    FieldType = "NUMBER"
	FieldTypeLong      FieldType = "LONG"
	FieldTypeDouble    FieldType = "DOUBLE"
	FieldTypeBool      FieldType = "BOOL"
	FieldTypeTime      FieldType = "TIME"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeDateTime  FieldType = "DATETIME"
	FieldTypeEntityRef FieldType = "ENTITY_REF"
	FieldTypeRecord    FieldType = "RECORD"
)

// fieldTypeAliases are the names some backends report instead of the canonical type
var fieldTypeAliases = map[string]FieldType{
	"QUANTITY": FieldTypeLong,
	"DECIMAL":  FieldTypeDouble,
}

// AllFieldTypes returns all valid field types
func AllFieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText,
		FieldTypeNumber,
		FieldTypeLong,
		FieldTypeDouble,
		FieldTypeBool,
		FieldTypeTime,
		FieldTypeDate,
		FieldTypeDateTime,
		FieldTypeEntityRef,
		FieldTypeRecord,
	}
}

// IsValid checks if the field type is valid
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText,
		FieldTypeNumber,
		FieldTypeLong,
		FieldTypeDouble,
		FieldTypeBool,
		FieldTypeTime,
		FieldTypeDate,
		FieldTypeDateTime,
		FieldTypeEntityRef,
		FieldTypeRecord:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether values of the type are numbers
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeNumber || t == FieldTypeLong || t == FieldTypeDouble
}

// IsTemporal reports whether values of the type are dates and/or times
func (t FieldType) IsTemporal() bool {
	return t == FieldTypeTime || t == FieldTypeDate || t == FieldTypeDateTime
}

// String returns the string representation of the field type
func (t FieldType) String() string {
	return string(t)
}

// ParseFieldType converts a type name into a FieldType. Matching is
// case-insensitive and accepts backend aliases (QUANTITY, DECIMAL).
func ParseFieldType(s string) (FieldType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if t := FieldType(name); t.IsValid() {
		return t, nil
	}
	if t, ok := fieldTypeAliases[name]; ok {
		return t, nil
	}
	return "", goerr.New("unknown field type", goerr.V("type", s))
}
