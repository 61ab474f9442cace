package handler

import (
	"context"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// resyncPayload builds the dispatch payload for a manual resync. The original
// event's matching details are gone; the executor only needs the IDs and the
// provider type, which comes from the company row.
func (h *JobHandler) resyncPayload(ctx context.Context, routing *domain.JobRouting) (domain.SyncPayload, error) {
	company, err := h.store.GetCompanyByID(ctx, routing.CompanyID)
	if err != nil {
		return domain.SyncPayload{}, err
	}

	return domain.SyncPayload{
		RoutingID:    routing.ID,
		JobID:        routing.JobID,
		CompanyID:    routing.CompanyID,
		ProviderType: company.ProviderType,
	}, nil
}
