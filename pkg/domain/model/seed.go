package model

import (
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// Seed declares entities, their fields and initial records
type Seed struct {
	Entities []SeedEntity `toml:"entity"`
}

// SeedEntity is one entity of a Seed
type SeedEntity struct {
	Name        string           `toml:"name"`
	DisplayName string           `toml:"displayName"`
	Fields      []SeedField      `toml:"field"`
	Records     []map[string]any `toml:"record"`
}

// SeedField is one field declaration of a SeedEntity
type SeedField struct {
	Name         string  `toml:"name"`
	Type         string  `toml:"type"`
	IsLogicalKey bool    `toml:"isLogicalKey"`
	RefEntity    string  `toml:"refEntity"`
	SortKey      float64 `toml:"sortKey"`
	UseAsDesc    bool    `toml:"useAsDesc"`
}

// DescriptorPayload returns the ENTITY record payload of e
func (e SeedEntity) DescriptorPayload() map[string]any {
	payload := map[string]any{"name": types.NewEntityName(e.Name).String()}
	if e.DisplayName != "" {
		payload["displayName"] = e.DisplayName
	}
	return payload
}

// FieldPayload returns the FIELD record payload of f declared on entity
func (f SeedField) FieldPayload(entity types.EntityName) map[string]any {
	payload := map[string]any{
		"name":         f.Name,
		"entity":       entity.String(),
		"type":         f.Type,
		"isLogicalKey": f.IsLogicalKey,
		"guiSettings": map[string]any{
			"useAsDesc": f.UseAsDesc,
			"sortKey":   f.SortKey,
		},
	}
	if f.RefEntity != "" {
		payload["refEntity"] = f.RefEntity
	}
	return payload
}
