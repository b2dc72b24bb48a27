package model

import "github.com/m-mizutani/goerr/v2"

// Error classes reported to the orchestration layer
var (
	ErrSchemaResolution = goerr.New("failed to resolve entity schema")
	ErrSubmit           = goerr.New("failed to submit record")
	ErrConfiguration    = goerr.New("invalid form engine configuration")
)

// Validation and parse errors
var (
	ErrInvalidFieldSchema = goerr.New("invalid field schema")
	ErrInvalidRecord      = goerr.New("invalid entity record")
	ErrInvalidFieldValue  = goerr.New("invalid field value")
	ErrMissingRequired    = goerr.New("required field is missing")
	ErrDuplicateField     = goerr.New("duplicate field name")
	ErrInvalidForm        = goerr.New("form has invalid fields")
	ErrSubmitInFlight     = goerr.New("submit already in progress")
	ErrInvalidFilter      = goerr.New("invalid filter expression")
	ErrRecordNotFound     = goerr.New("record not found")
	ErrRecordConflict     = goerr.New("record already exists")
)

// Context keys for error values
const (
	EntityNameKey   = "entity"
	FieldNameKey    = "field"
	FieldTypeKey    = "field_type"
	ExpectedTypeKey = "expected_type"
	ActualTypeKey   = "actual_type"
	FieldValueKey   = "field_value"
	RecordKeyKey    = "record_key"
	FilterKey       = "filter"
	WidgetKindKey   = "widget"
)
