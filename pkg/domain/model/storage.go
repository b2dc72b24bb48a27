package model

import (
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// KeyNamesFromFields returns the logical key attributes declared by a set of
// FIELD records, sorted by name. Records that do not parse are ignored.
func KeyNamesFromFields(fields []*EntityRecord) []string {
	var names []string
	for _, rec := range fields {
		f, err := ParseFieldSchema(rec)
		if err != nil || !f.IsLogicalKey {
			continue
		}
		names = append(names, f.Name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names
}

// PrepareNewRecord normalizes a payload before a record store persists it:
// meta entity names are canonicalized, FIELD payloads are validated, an id is
// assigned when absent and the logical key is computed. Failures are
// reported as *APIError with status 400.
func PrepareNewRecord(entity types.EntityName, payload map[string]any, keyNames []string, newID func() string) (map[string]any, string, error) {
	if payload == nil {
		return nil, "", NewBadRequestError("INVALID_RECORD", "record payload is empty")
	}
	prepared := maps.Clone(payload)

	switch entity {
	case types.EntityOfEntities:
		name, ok := prepared["name"].(string)
		if !ok || types.NewEntityName(name).Validate() != nil {
			return nil, "", NewBadRequestError("INVALID_ENTITY", "entity record needs a valid name")
		}
		prepared["name"] = types.NewEntityName(name).String()

	case types.EntityOfFields:
		field, err := ParseFieldSchemaPayload(prepared)
		if err != nil {
			return nil, "", NewBadRequestError("INVALID_FIELD", err.Error())
		}
		if field.Entity == "" {
			return nil, "", NewBadRequestError("INVALID_FIELD", "field record needs an entity")
		}
		prepared["entity"] = types.NewEntityName(field.Entity).String()
		prepared["type"] = field.Type.String()
		if field.RefEntity != "" {
			prepared["refEntity"] = field.RefEntity
		}
	}

	if id, ok := keyString(prepared[IDKey]); !ok || id == "" {
		prepared[IDKey] = newID()
	}

	key, ok := RecordKey(prepared, keyNames)
	if !ok {
		return nil, "", NewBadRequestError("MISSING_LOGICAL_KEY",
			"logical key "+strings.Join(keyNames, ",")+" of "+entity.String()+" is not set")
	}
	return prepared, key, nil
}

// NewBadRequestError builds the APIError returned for a malformed request
func NewBadRequestError(code, message string) *APIError {
	return &APIError{
		Status:    http.StatusBadRequest,
		Message:   message,
		ErrorCode: code,
	}
}

// ClonePayload deep-copies the maps and lists of a record payload
func ClonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return ClonePayload(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	default:
		return v
	}
}
