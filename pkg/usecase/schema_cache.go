package usecase

import (
	"sync"
	"time"

	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

type cachedSchema struct {
	schema    *model.EntitySchema
	expiresAt time.Time
}

// schemaCache keeps resolved schemas for a fixed TTL. A nil *schemaCache is
// a valid, always-missing cache.
type schemaCache struct {
	ttl   time.Duration
	now   func() time.Time
	cache sync.Map
}

func newSchemaCache(ttl time.Duration) *schemaCache {
	return &schemaCache{ttl: ttl, now: time.Now}
}

func (c *schemaCache) get(name types.EntityName) (*model.EntitySchema, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.cache.Load(name)
	if !ok {
		return nil, false
	}

	cached := val.(*cachedSchema)
	if c.now().After(cached.expiresAt) {
		c.cache.Delete(name)
		return nil, false
	}
	return cached.schema, true
}

func (c *schemaCache) set(schema *model.EntitySchema) {
	if c == nil {
		return
	}
	c.cache.Store(schema.Name, &cachedSchema{
		schema:    schema,
		expiresAt: c.now().Add(c.ttl),
	})
}

func (c *schemaCache) remove(name types.EntityName) {
	if c == nil {
		return
	}
	c.cache.Delete(name)
}
