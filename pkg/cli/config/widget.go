package config

import (
	"log/slog"
	"os"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Widget holds the path of a component binding override file
type Widget struct {
	path string
}

func (x *Widget) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "widget-config",
			Usage:       "TOML file overriding the field type to widget bindings",
			Category:    "Form",
			Sources:     cli.EnvVars("METAFORM_WIDGET_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x Widget) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

type widgetOverride struct {
	Widget string              `toml:"widget"`
	Config *model.WidgetConfig `toml:"config"`
}

// Configure builds the component registry. Without an override file it
// returns the built-in bindings. An override replaces the widget kind and,
// when a config table is present, the widget config of one field type:
//
//	[DOUBLE]
//	widget = "input"
//	[DOUBLE.config]
//	step = 0.001
func (x *Widget) Configure() (*model.ComponentRegistry, error) {
	bindings := model.DefaultComponentBindings()
	if x.path == "" {
		return model.NewComponentRegistry(bindings)
	}

	// #nosec G304 - path is provided by CLI flag
	data, err := os.ReadFile(x.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read widget config", goerr.V(ConfigPathKey, x.path))
	}
	if err := applyWidgetOverrides(bindings, data); err != nil {
		return nil, goerr.Wrap(err, "invalid widget config", goerr.V(ConfigPathKey, x.path))
	}
	return model.NewComponentRegistry(bindings)
}

func applyWidgetOverrides(bindings map[types.FieldType]model.ComponentMeta, data []byte) error {
	var overrides map[string]widgetOverride
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return goerr.Wrap(ErrInvalidWidget, "failed to parse TOML", goerr.V("error", err.Error()))
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		o := overrides[name]
		t, err := types.ParseFieldType(name)
		if err != nil {
			return goerr.Wrap(ErrInvalidWidget, "unknown field type", goerr.V(FieldTypeKey, name))
		}

		meta := bindings[t]
		if o.Widget != "" {
			kind := types.WidgetKind(o.Widget)
			if !kind.IsValid() {
				return goerr.Wrap(ErrInvalidWidget, "unknown widget kind",
					goerr.V(FieldTypeKey, name),
					goerr.V("widget", o.Widget))
			}
			if kind != meta.Widget {
				meta = model.ComponentMeta{Widget: kind}
			}
		}
		if o.Config != nil {
			meta.Config = *o.Config
		}
		bindings[t] = meta
	}
	return nil
}
