package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/metrics"
)

// dispatchCycle loads one batch of pending outbox events and hands each to
// the sync pool. The in-flight set keeps overlapping cycles from dispatching
// the same routing twice; the processing claim in the store keeps other
// processes out.
func (w *Worker) dispatchCycle(ctx context.Context) {
	events, err := w.store.PendingOutboxEvents(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("Failed to load pending outbox events",
			slog.String("error", err.Error()),
		)
		return
	}

	metrics.OutboxPending.Set(float64(len(events)))
	if len(events) == 0 {
		return
	}

	w.logger.Debug("Dispatching outbox events",
		slog.Int("count", len(events)),
	)

	for _, event := range events {
		// Dedupe by routing: a sweeper redispatch or manual resync can leave
		// two live events for the same routing in one batch.
		if !w.inFlight.TryAdd(event.AggregateID) {
			continue
		}

		if err := w.store.MarkEventProcessing(ctx, event.ID); err != nil {
			w.inFlight.Release(event.AggregateID)
			if !errors.Is(err, domain.ErrEventAlreadyProcessing) {
				w.logger.Error("Failed to claim outbox event",
					slog.String("event_id", event.ID.String()),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		select {
		case w.eventsCh <- event:
			metrics.OutboxDispatched.Inc()
		case <-ctx.Done():
			// Shutting down mid-batch: put the event back for the next run.
			w.inFlight.Release(event.AggregateID)
			if err := w.store.ReturnEventToPending(ctx, event.ID, "dispatch interrupted by shutdown"); err != nil {
				w.logger.Error("Failed to return event to pending",
					slog.String("event_id", event.ID.String()),
					slog.String("error", err.Error()),
				)
			}
			return
		case <-w.stopChan:
			w.inFlight.Release(event.AggregateID)
			return
		}
	}
}

// spawnSyncPool starts the bounded pool of sync goroutines.
func (w *Worker) spawnSyncPool(ctx context.Context) {
	w.logger.Info("Spawning sync pool",
		slog.Int("concurrency", w.cfg.Concurrency),
	)

	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.syncLoop(ctx, i)
	}
}

// syncLoop is the processing loop of one pool goroutine.
func (w *Worker) syncLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	logger := w.logger.With(slog.Int("sync_worker", workerNum))
	logger.Debug("Sync worker started")

	for {
		select {
		case <-w.stopChan:
			logger.Debug("Sync worker stopping")
			return
		case <-ctx.Done():
			logger.Debug("Sync worker stopping, context canceled")
			return
		case event := <-w.eventsCh:
			w.processEvent(ctx, event, logger)
		}
	}
}

// processEvent runs one outbox event through the sync executor and records
// the hand-off outcome on the event.
func (w *Worker) processEvent(ctx context.Context, event domain.OutboxEvent, logger *slog.Logger) {
	defer w.inFlight.Release(event.AggregateID)

	if event.EventType != domain.EventTypeJobSync {
		logger.Error("Outbox event has unknown type",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
		)
		w.failEvent(ctx, event, "unknown event type: "+event.EventType, logger)
		return
	}

	payload, err := event.Payload()
	if err != nil {
		// Malformed payloads never get better; fail the event so it stops
		// recycling and leave the routing to the sweeper.
		logger.Error("Outbox event payload is malformed",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
		w.failEvent(ctx, event, err.Error(), logger)
		return
	}

	if err := w.syncer.Sync(ctx, payload); err != nil {
		logger.Error("Sync execution failed",
			slog.String("event_id", event.ID.String()),
			slog.String("routing_id", payload.RoutingID.String()),
			slog.String("error", err.Error()),
		)
		if markErr := w.store.ReturnEventToPending(ctx, event.ID, err.Error()); markErr != nil {
			logger.Error("Failed to return event to pending",
				slog.String("event_id", event.ID.String()),
				slog.String("error", markErr.Error()),
			)
		}
		return
	}

	if err := w.store.MarkEventCompleted(ctx, event.ID); err != nil {
		logger.Error("Failed to mark event completed",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// failEvent marks an undispatchable event terminally failed.
func (w *Worker) failEvent(ctx context.Context, event domain.OutboxEvent, reason string, logger *slog.Logger) {
	if err := w.store.MarkEventFailed(ctx, event.ID, reason); err != nil {
		logger.Error("Failed to mark event failed",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
