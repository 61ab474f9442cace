package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/metrics"
)

// sweep is the backup path behind the outbox dispatcher. It finds routings
// that have sat in pending past the staleness window (their event was lost or
// never dispatched) or in processing past it (their worker died mid-flight),
// and re-enters them into the pipeline with a fresh outbox event.
func (w *Worker) sweep(ctx context.Context) {
	stuck, err := w.store.FindStuckRoutings(ctx, w.cfg.SweepStaleness, w.cfg.SweepBatchSize)
	if err != nil {
		w.logger.Error("Sweep failed to find stuck routings",
			slog.String("error", err.Error()),
		)
		return
	}
	if len(stuck) == 0 {
		return
	}

	w.logger.Info("Sweeping stuck routings",
		slog.Int("count", len(stuck)),
	)

	for _, routing := range stuck {
		if routing.SyncStatus == domain.SyncStatusProcessing {
			if err := w.store.ResetStuckProcessing(ctx, routing.ID, w.cfg.SweepStaleness); err != nil {
				// Lost the race with the routing's own worker; leave it be.
				w.logger.Debug("Stuck routing recovered on its own",
					slog.String("routing_id", routing.ID.String()),
				)
				continue
			}
		}

		if err := w.redispatch(ctx, routing); err != nil {
			w.logger.Error("Failed to re-dispatch stuck routing",
				slog.String("routing_id", routing.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		metrics.SweeperRecovered.Inc()
	}
}

// redispatch writes a fresh job_sync event for the routing. The matching
// details of the original event are gone; the executor only needs the IDs and
// the provider type, which comes from the company row.
func (w *Worker) redispatch(ctx context.Context, routing domain.JobRouting) error {
	company, err := w.store.GetCompanyByID(ctx, routing.CompanyID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(domain.SyncPayload{
		RoutingID:    routing.ID,
		JobID:        routing.JobID,
		CompanyID:    routing.CompanyID,
		ProviderType: company.ProviderType,
	})
	if err != nil {
		return err
	}

	event := domain.OutboxEvent{
		ID:          uuid.New(),
		EventType:   domain.EventTypeJobSync,
		AggregateID: routing.ID,
		EventData:   payload,
		Status:      domain.OutboxStatusPending,
	}
	if err := w.store.CreateOutboxEvent(ctx, &event); err != nil {
		return err
	}

	w.logger.Info("Stuck routing re-dispatched",
		slog.String("routing_id", routing.ID.String()),
		slog.String("event_id", event.ID.String()),
	)
	return nil
}
