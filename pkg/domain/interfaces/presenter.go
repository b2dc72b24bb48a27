package interfaces

import (
	"context"

	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// Messages resolves translation keys. Unknown keys resolve to themselves.
type Messages interface {
	Get(key string) string
}

// Notifier shows one-shot user notifications
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg, detail string)
}

// Navigator moves the user to the detail view of a record
type Navigator interface {
	NavigateToRecord(ctx context.Context, entity types.EntityName, key string)
}

// SlackPoster is the subset of the Slack API used for notifications
type SlackPoster interface {
	PostMessage(ctx context.Context, channel, text string) error
}
