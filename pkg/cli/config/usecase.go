package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/service/notify"
	"github.com/secmon-lab/metaform/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// UseCase aggregates the configuration of the form engine
type UseCase struct {
	cacheTTL  time.Duration
	notifyLog bool

	Widget   Widget
	Messages Messages
	Slack    Slack
}

func (x *UseCase) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:        "schema-cache-ttl",
			Usage:       "Lifetime of cached entity schemas (0 disables caching)",
			Category:    "Form",
			Sources:     cli.EnvVars("METAFORM_SCHEMA_CACHE_TTL"),
			Destination: &x.cacheTTL,
		},
		&cli.BoolFlag{
			Name:        "notify-log",
			Usage:       "Also write user notifications to the log",
			Category:    "Form",
			Sources:     cli.EnvVars("METAFORM_NOTIFY_LOG"),
			Destination: &x.notifyLog,
		},
	}
	flags = append(flags, x.Widget.Flags()...)
	flags = append(flags, x.Messages.Flags()...)
	flags = append(flags, x.Slack.Flags()...)
	return flags
}

func (x UseCase) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("schema_cache_ttl", x.cacheTTL),
		slog.Bool("notify_log", x.notifyLog),
		slog.Any("widget", x.Widget),
		slog.Any("messages", x.Messages),
		slog.Any("slack", x.Slack),
	)
}

// Configure builds the use cases on top of api
func (x *UseCase) Configure(api interfaces.RecordAPI) (*usecase.UseCases, error) {
	registry, err := x.Widget.Configure()
	if err != nil {
		return nil, err
	}
	msgs, err := x.Messages.Configure()
	if err != nil {
		return nil, err
	}

	opts := []usecase.Option{
		usecase.WithComponentRegistry(registry),
		usecase.WithMessages(msgs),
		usecase.WithSchemaCacheTTL(x.cacheTTL),
	}

	mirror, err := x.mirror()
	if err != nil {
		return nil, err
	}
	if mirror != nil {
		opts = append(opts, usecase.WithNotifier(mirror))
	}

	return usecase.New(api, opts...)
}

// CacheEnabled reports whether entity schemas are cached
func (x *UseCase) CacheEnabled() bool {
	return x.cacheTTL > 0
}

// mirror returns the notifier receiving copies of presenter notifications,
// or nil when neither the log nor Slack is enabled.
func (x *UseCase) mirror() (interfaces.Notifier, error) {
	var mirrors notify.Multi
	if x.notifyLog {
		mirrors = append(mirrors, notify.Logger{})
	}

	slackNotifier, err := x.Slack.Configure()
	if err != nil {
		return nil, err
	}
	if slackNotifier != nil {
		mirrors = append(mirrors, slackNotifier)
	}

	switch len(mirrors) {
	case 0:
		return nil, nil
	case 1:
		return mirrors[0], nil
	default:
		return mirrors, nil
	}
}
