package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
)

// SchemaRefreshWorker periodically re-resolves entity schemas so that a
// long-lived schema cache follows FIELD and ENTITY changes made by other
// writers of the record API.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Refresh failures keep the previously cached schemas
type SchemaRefreshWorker struct {
	refresher interfaces.SchemaRefresher
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSchemaRefreshWorker creates a new worker refreshing schemas every interval
func NewSchemaRefreshWorker(refresher interfaces.SchemaRefresher, interval time.Duration) *SchemaRefreshWorker {
	return &SchemaRefreshWorker{
		refresher: refresher,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background refresh loop. The initial refresh also runs in
// the background and does not block server startup.
func (w *SchemaRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("Schema refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *SchemaRefreshWorker) Stop() {
	logging.Default().Info("Schema refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Schema refresh worker stopped")
}

func (w *SchemaRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)

		case <-w.stopCh:
			logging.Default().Info("Schema refresh worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Schema refresh worker context cancelled")
			return
		}
	}
}

func (w *SchemaRefreshWorker) refresh(ctx context.Context) {
	startTime := time.Now()

	count, err := w.refresher.Refresh(ctx)
	if err != nil {
		logging.Default().Error("Schema refresh failed (will retry next interval)",
			"error", err.Error())
		return
	}

	logging.Default().Debug("Schema refresh completed",
		"count", count,
		"duration", time.Since(startTime).String())
}
