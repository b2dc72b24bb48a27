package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// ParseFieldSchema reinterprets a FIELD record as a FieldSchema. The record
// payload must carry a name and a known type; ENTITY_REF fields must name
// their referenced entity.
func ParseFieldSchema(rec *EntityRecord) (FieldSchema, error) {
	payload, err := rec.Payload()
	if err != nil {
		return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "field record is not an object",
			goerr.V("cause", err.Error()))
	}
	return ParseFieldSchemaPayload(payload)
}

// ParseFieldSchemaPayload is ParseFieldSchema on an already unwrapped payload
func ParseFieldSchemaPayload(payload map[string]any) (FieldSchema, error) {
	name, ok := payload["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "field record has no name",
			goerr.V(ActualTypeKey, fmt.Sprintf("%T", payload["name"])))
	}

	rawType, ok := payload["type"].(string)
	if !ok {
		return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "field record has no type",
			goerr.V(FieldNameKey, name))
	}
	fieldType, err := types.ParseFieldType(rawType)
	if err != nil {
		return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "field record has unknown type",
			goerr.V(FieldNameKey, name),
			goerr.V(FieldTypeKey, rawType))
	}

	field := FieldSchema{
		Name: name,
		Type: fieldType,
	}

	if v, exists := payload["entity"]; exists && v != nil {
		entity, ok := keyString(v)
		if !ok {
			return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "field record has invalid entity",
				goerr.V(FieldNameKey, name))
		}
		field.Entity = entity
	}

	if v, exists := payload["isLogicalKey"]; exists && v != nil {
		b, ok := v.(bool)
		if !ok {
			return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "isLogicalKey is not a boolean",
				goerr.V(FieldNameKey, name),
				goerr.V(ActualTypeKey, fmt.Sprintf("%T", v)))
		}
		field.IsLogicalKey = b
	}

	if v, exists := payload["refEntity"]; exists && v != nil {
		ref, ok := keyString(v)
		if !ok {
			return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "refEntity is invalid",
				goerr.V(FieldNameKey, name))
		}
		field.RefEntity = types.NewEntityName(ref).String()
	}
	if field.Type == types.FieldTypeEntityRef && field.RefEntity == "" {
		return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "reference field has no refEntity",
			goerr.V(FieldNameKey, name))
	}

	if v, exists := payload["guiSettings"]; exists && v != nil {
		gui, ok := v.(map[string]any)
		if !ok {
			return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "guiSettings is not an object",
				goerr.V(FieldNameKey, name))
		}
		if desc, ok := gui["useAsDesc"].(bool); ok {
			field.GUISettings.UseAsDesc = desc
		}
		if sk, exists := gui["sortKey"]; exists && sk != nil {
			sortKey, err := toFloat(sk)
			if err != nil {
				return FieldSchema{}, goerr.Wrap(ErrInvalidFieldSchema, "sortKey is not a number",
					goerr.V(FieldNameKey, name),
					goerr.V(ActualTypeKey, fmt.Sprintf("%T", sk)))
			}
			field.GUISettings.SortKey = sortKey
		}
	}

	return field, nil
}

// Payload returns the FIELD record payload describing f
func (f FieldSchema) Payload() map[string]any {
	payload := map[string]any{
		"name":         f.Name,
		"entity":       f.Entity,
		"type":         f.Type.String(),
		"isLogicalKey": f.IsLogicalKey,
		"guiSettings": map[string]any{
			"useAsDesc": f.GUISettings.UseAsDesc,
			"sortKey":   f.GUISettings.SortKey,
		},
	}
	if f.RefEntity != "" {
		payload["refEntity"] = f.RefEntity
	}
	return payload
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, goerr.New("not a number", goerr.V(ActualTypeKey, fmt.Sprintf("%T", v)))
	}
}
