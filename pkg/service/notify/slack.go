package notify

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/utils/async"
	"github.com/slack-go/slack"
)

// slackPoster adapts slack.Client to interfaces.SlackPoster
type slackPoster struct {
	api *slack.Client
}

func (p *slackPoster) PostMessage(ctx context.Context, channel, text string) error {
	if _, _, err := p.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return goerr.Wrap(err, "failed to post slack message", goerr.V("channel", channel))
	}
	return nil
}

// NewSlackPoster creates a poster with the given bot token
func NewSlackPoster(token string) (interfaces.SlackPoster, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	return &slackPoster{api: slack.New(token)}, nil
}

// Slack mirrors notifications into a Slack channel. Posting happens in the
// background and never delays or fails the notifying operation.
type Slack struct {
	poster  interfaces.SlackPoster
	channel string
}

var _ interfaces.Notifier = &Slack{}

// NewSlack creates a Slack notifier posting to channel
func NewSlack(poster interfaces.SlackPoster, channel string) (*Slack, error) {
	if channel == "" {
		return nil, goerr.New("Slack channel is required")
	}
	return &Slack{poster: poster, channel: channel}, nil
}

func (s *Slack) Success(ctx context.Context, msg string) {
	s.post(ctx, ":white_check_mark: "+msg)
}

func (s *Slack) Error(ctx context.Context, msg, detail string) {
	text := ":x: " + msg
	if detail != "" {
		text = fmt.Sprintf("%s\n> %s", text, detail)
	}
	s.post(ctx, text)
}

func (s *Slack) post(ctx context.Context, text string) {
	async.Dispatch(ctx, "slack-notify", func(ctx context.Context) error {
		return s.poster.PostMessage(ctx, s.channel, text)
	})
}
