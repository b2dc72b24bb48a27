package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

const gcsScheme = "gs://"

// Seed holds the location of a schema seed file
type Seed struct {
	path string
}

func (x *Seed) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "schema-seed",
			Usage:       "Schema seed TOML file, local path or gs://bucket/object",
			Category:    "Schema",
			Sources:     cli.EnvVars("METAFORM_SCHEMA_SEED"),
			Destination: &x.path,
		},
	}
}

func (x Seed) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// IsConfigured reports whether a seed location is set
func (x *Seed) IsConfigured() bool {
	return x.path != ""
}

// Load reads and parses the seed file. It returns nil when no path is set.
func (x *Seed) Load(ctx context.Context) (*model.Seed, error) {
	if x.path == "" {
		return nil, nil
	}

	var data []byte
	var err error
	if strings.HasPrefix(x.path, gcsScheme) {
		data, err = readGCSObject(ctx, x.path)
	} else {
		// #nosec G304 - path is provided by CLI flag
		data, err = os.ReadFile(x.path)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read schema seed", goerr.V(ConfigPathKey, x.path))
	}

	return parseSeed(data)
}

func readGCSObject(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, gcsScheme), "/")
	if !ok || bucket == "" || object == "" {
		return nil, goerr.Wrap(ErrInvalidSeedFile, "malformed GCS URI", goerr.V(ConfigPathKey, uri))
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	defer func() { _ = client.Close() }()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open GCS object",
			goerr.V("bucket", bucket),
			goerr.V("object", object))
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read GCS object",
			goerr.V("bucket", bucket),
			goerr.V("object", object))
	}
	return data, nil
}

func parseSeed(data []byte) (*model.Seed, error) {
	var seed model.Seed
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, goerr.Wrap(ErrInvalidSeedFile, "failed to parse TOML", goerr.V("error", err.Error()))
	}

	for i, e := range seed.Entities {
		if e.Name == "" {
			return nil, goerr.Wrap(ErrInvalidSeedFile, "entity name is required", goerr.V("index", i))
		}
		for _, rec := range e.Records {
			for k, v := range rec {
				rec[k] = normalizeTOMLValue(v)
			}
		}
	}
	return &seed, nil
}

// normalizeTOMLValue turns TOML local date and time values into the string
// layouts used on the wire.
func normalizeTOMLValue(v any) any {
	switch x := v.(type) {
	case toml.LocalDate:
		return x.String()
	case toml.LocalTime:
		return time.Date(0, 1, 1, x.Hour, x.Minute, x.Second, 0, time.UTC).Format(model.TimeLayout)
	case toml.LocalDateTime:
		return x.AsTime(time.UTC).Format(model.DateTimeLayout)
	case time.Time:
		return x.Format(model.DateTimeLayout)
	default:
		return v
	}
}
