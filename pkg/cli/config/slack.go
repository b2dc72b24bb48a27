package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/service/notify"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for mirroring notifications into a Slack channel
type Slack struct {
	botToken string
	channel  string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting notifications)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("METAFORM_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID receiving form notifications",
			Category:    "Slack",
			Destination: &x.channel,
			Sources:     cli.EnvVars("METAFORM_SLACK_CHANNEL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channel),
	)
}

// IsConfigured checks if Slack configuration is complete
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channel != ""
}

// Configure returns a Slack notifier, or nil when Slack is not configured.
// Setting only one of token and channel is an error.
func (x *Slack) Configure() (interfaces.Notifier, error) {
	if x.botToken == "" && x.channel == "" {
		return nil, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrMissingFlag, "both --slack-bot-token and --slack-channel are required")
	}

	poster, err := notify.NewSlackPoster(x.botToken)
	if err != nil {
		return nil, err
	}
	notifier, err := notify.NewSlack(poster, x.channel)
	if err != nil {
		return nil, err
	}
	return notifier, nil
}
