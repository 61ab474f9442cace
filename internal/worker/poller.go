package worker

import (
	"context"
	"log/slog"

	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/metrics"
	"github.com/tradeengage/jobrouting/internal/provider"
)

// pollStatuses asks the providers about synced leads and closes out the ones
// the provider reports as completed: the routing moves synced -> completed and
// the job records the reported revenue.
func (w *Worker) pollStatuses(ctx context.Context) {
	routings, err := w.store.FindSyncedForPolling(ctx, w.cfg.PollBatchSize)
	if err != nil {
		w.logger.Error("Status poll failed to load synced routings",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, routing := range routings {
		if err := w.pollRouting(ctx, routing); err != nil {
			w.logger.Warn("Status poll failed for routing",
				slog.String("routing_id", routing.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (w *Worker) pollRouting(ctx context.Context, routing domain.JobRouting) error {
	company, err := w.store.GetCompanyByID(ctx, routing.CompanyID)
	if err != nil {
		return err
	}

	client, err := w.registry.Get(company.ProviderType)
	if err != nil {
		return err
	}

	status, err := client.GetStatus(ctx, company.ProviderConfig, routing.ExternalID.String)
	if err != nil {
		return err
	}

	if status.Status != provider.LeadStatusCompleted {
		return nil
	}

	if err := w.store.MarkRoutingCompleted(ctx, routing.ID, status.Revenue); err != nil {
		return err
	}
	if err := w.store.CompleteJob(ctx, routing.JobID, status.Revenue, status.CompletedAt); err != nil {
		return err
	}

	metrics.PollerCompleted.Inc()
	w.logger.Info("Routing completed by provider",
		slog.String("routing_id", routing.ID.String()),
		slog.String("job_id", routing.JobID.String()),
		slog.Float64("revenue", status.Revenue),
	)
	return nil
}
