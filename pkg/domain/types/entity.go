package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// EntityName is the canonical, case-insensitive name of an entity
type EntityName string

// Names of the entities that describe the schema itself
const (
	EntityOfEntities EntityName = "ENTITY"
	EntityOfFields   EntityName = "FIELD"
)

// NewEntityName normalizes s into its canonical form (trimmed, upper case)
func NewEntityName(s string) EntityName {
	return EntityName(strings.ToUpper(strings.TrimSpace(s)))
}

// Validate checks if the EntityName is usable as a record collection name
func (n EntityName) Validate() error {
	if n == "" {
		return goerr.New("entity name cannot be empty")
	}
	if strings.ContainsAny(string(n), "/?#") {
		return goerr.New("entity name contains reserved characters", goerr.V("entity", n))
	}
	return nil
}

// IsMeta reports whether the entity belongs to the schema layer (ENTITY, FIELD)
func (n EntityName) IsMeta() bool {
	return n == EntityOfEntities || n == EntityOfFields
}

// String returns the string representation of EntityName
func (n EntityName) String() string {
	return string(n)
}
