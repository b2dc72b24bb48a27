package config

import (
	"log/slog"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/service/messages"
	"github.com/urfave/cli/v3"
)

// Messages holds the path of a translation catalog
type Messages struct {
	path string
}

func (x *Messages) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "messages",
			Usage:       "TOML translation catalog for user notifications",
			Category:    "Form",
			Sources:     cli.EnvVars("METAFORM_MESSAGES"),
			Destination: &x.path,
		},
	}
}

func (x Messages) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Configure loads the catalog, or returns the built-in texts when no path is set
func (x *Messages) Configure() (interfaces.Messages, error) {
	if x.path == "" {
		return messages.New(nil), nil
	}
	catalog, err := messages.Load(x.path)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}
