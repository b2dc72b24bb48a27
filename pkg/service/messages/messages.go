package messages

import (
	"maps"
	"os"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
)

// Keys used by the form engine
const (
	EntityRecordNew       = "ENTITY_RECORD.NEW"
	EntityRecordCreated   = "ENTITY_RECORD.CREATED"
	EntityRecordErrorNew  = "ENTITY_RECORD.ERRORS.NEW"
	EntityRecordErrorLoad = "ENTITY_RECORD.ERRORS.LOAD"
)

var defaults = map[string]string{
	EntityRecordNew:       "New record",
	EntityRecordCreated:   "Record created",
	EntityRecordErrorNew:  "Failed to create the record",
	EntityRecordErrorLoad: "Failed to load the form",
}

// Catalog is a flat key → text translation table. Unknown keys resolve to themselves.
type Catalog struct {
	entries map[string]string
}

var _ interfaces.Messages = &Catalog{}

// New returns a catalog holding the built-in English texts overlaid with overrides
func New(overrides map[string]string) *Catalog {
	entries := maps.Clone(defaults)
	maps.Copy(entries, overrides)
	return &Catalog{entries: entries}
}

// Load reads a TOML catalog. Nested tables are flattened with "." so that
//
//	[ENTITY_RECORD.ERRORS]
//	NEW = "..."
//
// defines ENTITY_RECORD.ERRORS.NEW.
func Load(path string) (*Catalog, error) {
	// #nosec G304 - path is provided by CLI flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read message catalog", goerr.V("path", path))
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to parse message catalog", goerr.V("path", path))
	}

	flat := make(map[string]string)
	if err := flatten("", raw, flat); err != nil {
		return nil, goerr.Wrap(err, "invalid message catalog", goerr.V("path", path))
	}
	return New(flat), nil
}

func flatten(prefix string, in map[string]any, out map[string]string) error {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case string:
			out[key] = x
		case map[string]any:
			if err := flatten(key, x, out); err != nil {
				return err
			}
		default:
			return goerr.New("message must be a string", goerr.V("key", key))
		}
	}
	return nil
}

// Get returns the text of key, or key itself when it is unknown
func (c *Catalog) Get(key string) string {
	if v, ok := c.entries[key]; ok {
		return v
	}
	return key
}

// Keys returns the known keys in sorted order
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
