package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/tradeengage/jobrouting/internal/metrics"
)

// cleanupOutbox deletes completed outbox events past the retention window.
// Completed events are pure history; the routing rows keep the state that
// matters.
func (w *Worker) cleanupOutbox(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.cfg.CleanupRetention)

	deleted, err := w.store.DeleteCompletedEventsBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error("Outbox cleanup failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if deleted > 0 {
		metrics.OutboxCleanupDeleted.Add(float64(deleted))
		w.logger.Info("Outbox cleanup removed completed events",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
}
