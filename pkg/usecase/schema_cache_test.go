package usecase

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/metaform/pkg/domain/model"
)

func TestSchemaCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newSchemaCache(time.Minute)
	c.now = func() time.Time { return now }

	schema, err := model.NewEntitySchema("CUSTOMER", nil, nil)
	gt.NoError(t, err).Required()

	_, ok := c.get("CUSTOMER")
	gt.Bool(t, ok).False()

	c.set(schema)
	got, ok := c.get("CUSTOMER")
	gt.Bool(t, ok).True()
	gt.Value(t, got).Equal(schema)

	now = now.Add(2 * time.Minute)
	_, ok = c.get("CUSTOMER")
	gt.Bool(t, ok).False()

	c.set(schema)
	c.remove("CUSTOMER")
	_, ok = c.get("CUSTOMER")
	gt.Bool(t, ok).False()

	t.Run("nil cache always misses", func(t *testing.T) {
		var nilCache *schemaCache
		nilCache.set(schema)
		_, ok := nilCache.get("CUSTOMER")
		gt.Bool(t, ok).False()
		nilCache.remove("CUSTOMER")
	})
}
