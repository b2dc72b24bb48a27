package async

import (
	"context"
	"log/slog"

	"github.com/secmon-lab/metaform/pkg/utils/errutil"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
)

// Dispatch runs handler in a new goroutine detached from ctx cancellation.
// The logger of ctx is carried over; errors and panics are logged and
// reported, never propagated.
func Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) {
	logger := logging.From(ctx).With(slog.String("task", task))
	bgCtx := logging.With(context.WithoutCancel(ctx), logger)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in async task", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			errutil.Handle(bgCtx, err, "async task failed")
		}
	}()
}
