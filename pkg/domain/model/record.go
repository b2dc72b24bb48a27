package model

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// IDKey is the attribute holding the server-assigned identifier of a record
const IDKey = "id"

// EntityRecord is the wire envelope of the record API. Data is either one
// record payload (an object) or, for list results, a list of EntityRecord.
type EntityRecord struct {
	Data any `json:"data"`
}

// NewEntityRecord wraps a single payload
func NewEntityRecord(payload map[string]any) *EntityRecord {
	return &EntityRecord{Data: payload}
}

// NewEntityRecordList wraps a list of records
func NewEntityRecordList(records []*EntityRecord) *EntityRecord {
	if records == nil {
		records = []*EntityRecord{}
	}
	return &EntityRecord{Data: records}
}

// Payload reinterprets Data as a single record payload
func (r *EntityRecord) Payload() (map[string]any, error) {
	if r == nil {
		return nil, goerr.Wrap(ErrInvalidRecord, "record is nil")
	}
	switch v := r.Data.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return nil, goerr.Wrap(ErrInvalidRecord, "record has no data")
	default:
		return nil, goerr.Wrap(ErrInvalidRecord, "record data is not an object",
			goerr.V(ActualTypeKey, fmt.Sprintf("%T", r.Data)))
	}
}

// Records reinterprets Data as a list of records. Items decoded from JSON
// arrive as {"data": {...}} objects and are unwrapped here.
func (r *EntityRecord) Records() ([]*EntityRecord, error) {
	if r == nil {
		return nil, goerr.Wrap(ErrInvalidRecord, "record is nil")
	}
	switch v := r.Data.(type) {
	case []*EntityRecord:
		return v, nil
	case []EntityRecord:
		out := make([]*EntityRecord, len(v))
		for i := range v {
			out[i] = &v[i]
		}
		return out, nil
	case []any:
		out := make([]*EntityRecord, 0, len(v))
		for i, item := range v {
			switch it := item.(type) {
			case *EntityRecord:
				out = append(out, it)
			case map[string]any:
				data, ok := it["data"]
				if !ok {
					return nil, goerr.Wrap(ErrInvalidRecord, "list item has no data", goerr.V("index", i))
				}
				out = append(out, &EntityRecord{Data: data})
			default:
				return nil, goerr.Wrap(ErrInvalidRecord, "list item is not a record",
					goerr.V("index", i),
					goerr.V(ActualTypeKey, fmt.Sprintf("%T", item)))
			}
		}
		return out, nil
	case nil:
		return []*EntityRecord{}, nil
	default:
		return nil, goerr.Wrap(ErrInvalidRecord, "record data is not a list",
			goerr.V(ActualTypeKey, fmt.Sprintf("%T", r.Data)))
	}
}

// Clone returns a copy whose payload map can be mutated independently
func (r *EntityRecord) Clone() *EntityRecord {
	payload, err := r.Payload()
	if err != nil {
		return &EntityRecord{Data: r.Data}
	}
	return NewEntityRecord(maps.Clone(payload))
}

// MetaKeyNames returns the logical key attributes of the schema entities.
// ENTITY records are keyed by name, FIELD records by entity and name.
func MetaKeyNames(entity types.EntityName) []string {
	switch entity {
	case types.EntityOfEntities:
		return []string{"name"}
	case types.EntityOfFields:
		return []string{"entity", "name"}
	default:
		return nil
	}
}

// RecordKey builds the logical key of payload from the given key attributes,
// joining multiple values with "/". Without key attributes the record id is
// used. It returns false when a key value is missing.
func RecordKey(payload map[string]any, keyNames []string) (string, bool) {
	if len(keyNames) == 0 {
		keyNames = []string{IDKey}
	}

	parts := make([]string, 0, len(keyNames))
	for _, name := range keyNames {
		s, ok := keyString(payload[name])
		if !ok {
			return "", false
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "/"), true
}

// Key returns the logical key of the record for the given schema
func (r *EntityRecord) Key(schema *EntitySchema) (string, bool) {
	payload, err := r.Payload()
	if err != nil {
		return "", false
	}
	names := MetaKeyNames(schema.Name)
	if names == nil {
		names = schema.LogicalKeyNames()
	}
	if key, ok := RecordKey(payload, names); ok {
		return key, true
	}
	return RecordKey(payload, nil)
}

// Label returns the human-readable label of the record: the values of the
// schema's description fields joined by a space, or its key when none is set.
func (r *EntityRecord) Label(schema *EntitySchema) string {
	key, _ := r.Key(schema)
	payload, err := r.Payload()
	if err != nil {
		return key
	}
	var parts []string
	for _, f := range schema.DescFields() {
		if s, ok := keyString(payload[f.Name]); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return key
	}
	return strings.Join(parts, " ")
}

func keyString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if x == math.Trunc(x) && floatFitsInt64(x) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), x != ""
	case map[string]any:
		// reference values carry the referenced record's key or name
		if name, ok := x["name"]; ok {
			return keyString(name)
		}
		return keyString(x[IDKey])
	default:
		return fmt.Sprint(x), true
	}
}
