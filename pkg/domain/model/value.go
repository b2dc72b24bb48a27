package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// Wire layouts of temporal values
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = time.RFC3339
)

var (
	timeLayouts     = []string{TimeLayout, "15:04"}
	dateTimeLayouts = []string{DateTimeLayout, "2006-01-02T15:04:05", "2006-01-02T15:04"}
)

// DefaultValue returns the initial control value for a field type
func DefaultValue(t types.FieldType) any {
	switch t {
	case types.FieldTypeText:
		return ""
	case types.FieldTypeBool:
		return false
	default:
		return nil
	}
}

// CoerceValue converts a raw input (widget event or decoded JSON) into the
// value a control of type t holds:
//
//	TEXT       string
//	NUMBER     float64
//	LONG       int64
//	DOUBLE     float64
//	BOOL       bool
//	TIME/DATE/DATETIME  time.Time
//	ENTITY_REF string (logical key of the referenced record)
//	RECORD     map[string]any
//
// Empty input yields DefaultValue(t).
func CoerceValue(t types.FieldType, raw any) (any, error) {
	if raw == nil {
		return DefaultValue(t), nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" && t != types.FieldTypeText {
		return DefaultValue(t), nil
	}

	switch t {
	case types.FieldTypeText:
		return coerceText(raw)
	case types.FieldTypeNumber, types.FieldTypeDouble:
		return coerceFloat(t, raw)
	case types.FieldTypeLong:
		return coerceLong(raw)
	case types.FieldTypeBool:
		return coerceBool(raw)
	case types.FieldTypeTime:
		return coerceTime(t, raw, timeLayouts)
	case types.FieldTypeDate:
		return coerceTime(t, raw, []string{DateLayout})
	case types.FieldTypeDateTime:
		return coerceTime(t, raw, dateTimeLayouts)
	case types.FieldTypeEntityRef:
		return coerceRef(raw)
	case types.FieldTypeRecord:
		return coerceRecord(raw)
	default:
		return nil, goerr.Wrap(ErrInvalidFieldValue, "unsupported field type",
			goerr.V(FieldTypeKey, t))
	}
}

// EncodeValue converts a control value into its wire representation
func EncodeValue(t types.FieldType, v any) any {
	tm, ok := v.(time.Time)
	if !ok {
		return v
	}
	switch t {
	case types.FieldTypeDate:
		return tm.Format(DateLayout)
	case types.FieldTypeTime:
		return tm.Format(TimeLayout)
	default:
		return tm.Format(DateTimeLayout)
	}
}

// IsEmpty reports whether v counts as "no value" for required checks
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case map[string]any:
		return len(x) == 0
	case time.Time:
		return x.IsZero()
	default:
		return false
	}
}

func typeMismatch(t types.FieldType, raw any) error {
	return goerr.Wrap(ErrInvalidFieldValue, "value does not match field type",
		goerr.V(ExpectedTypeKey, t),
		goerr.V(ActualTypeKey, fmt.Sprintf("%T", raw)))
}

func coerceText(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, typeMismatch(types.FieldTypeText, raw)
	}
}

func coerceFloat(t types.FieldType, raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "invalid number",
				goerr.V(FieldValueKey, v.String()))
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "invalid number",
				goerr.V(FieldValueKey, v),
				goerr.V(ExpectedTypeKey, t))
		}
		return f, nil
	default:
		return nil, typeMismatch(t, raw)
	}
}

func coerceLong(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "value is not an integer",
				goerr.V(FieldValueKey, v))
		}
		if !floatFitsInt64(v) {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "integer is out of range",
				goerr.V(FieldValueKey, v))
		}
		return int64(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		// exponent or fraction notation such as 7.0 or 1e3
		f, err := v.Float64()
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "value is not an integer",
				goerr.V(FieldValueKey, v.String()))
		}
		return coerceLong(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "value is not an integer",
				goerr.V(FieldValueKey, v))
		}
		return n, nil
	default:
		return nil, typeMismatch(types.FieldTypeLong, raw)
	}
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "invalid boolean",
				goerr.V(FieldValueKey, v))
		}
		return b, nil
	default:
		return nil, typeMismatch(types.FieldTypeBool, raw)
	}
}

func coerceTime(t types.FieldType, raw any, layouts []string) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range layouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm, nil
			}
		}
		return nil, goerr.Wrap(ErrInvalidFieldValue, "invalid time format",
			goerr.V(FieldValueKey, v),
			goerr.V(ExpectedTypeKey, t),
			goerr.V("layout", layouts[0]))
	default:
		return nil, typeMismatch(t, raw)
	}
}

func coerceRef(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case map[string]any:
		key, ok := keyString(v)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "reference has no key")
		}
		return key, nil
	default:
		return nil, typeMismatch(types.FieldTypeEntityRef, raw)
	}
}

func coerceRecord(raw any) (any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return NormalizeNumbers(v), nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, goerr.Wrap(ErrInvalidFieldValue, "record value is not a JSON object",
				goerr.V(FieldValueKey, v))
		}
		return m, nil
	case []byte:
		return coerceRecord(string(v))
	default:
		return nil, typeMismatch(types.FieldTypeRecord, raw)
	}
}

// floatFitsInt64 reports whether the integral float f converts to int64
// without overflow. 1<<63 itself is out of range.
func floatFitsInt64(f float64) bool {
	return f >= -(1<<63) && f < 1<<63
}

// NormalizeNumbers replaces json.Number values decoded with UseNumber by
// int64 when exact, float64 otherwise. Nested maps and slices are rewritten
// in place.
func NormalizeNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeNumber(v)
	}
	return m
}

func normalizeNumber(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		return NormalizeNumbers(x)
	case []any:
		for i, e := range x {
			x[i] = normalizeNumber(e)
		}
		return x
	default:
		return v
	}
}
