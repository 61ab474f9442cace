// Package handler implements the HTTP endpoints of the routing API.
package handler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/matching"
	"github.com/tradeengage/jobrouting/internal/storage"
)

// Store is the slice of storage the handlers need.
type Store interface {
	CreateJobWithRoutings(ctx context.Context, job *domain.Job, selected []storage.RoutingInput) ([]domain.JobRouting, []domain.OutboxEvent, error)
	GetJobByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)
	GetRoutingsByJobID(ctx context.Context, jobID uuid.UUID) ([]domain.JobRouting, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, error)
	ListActiveCompanies(ctx context.Context) ([]domain.Company, error)
	GetRoutingByID(ctx context.Context, routingID uuid.UUID) (*domain.JobRouting, error)
	ResetForResync(ctx context.Context, routingID uuid.UUID) error
	GetCompanyByID(ctx context.Context, companyID uuid.UUID) (*domain.Company, error)
}

// Syncer runs one claim-and-sync pass for a routing payload. The manual
// resync endpoint uses it inline.
type Syncer interface {
	Sync(ctx context.Context, payload domain.SyncPayload) error
}

// Publisher is the nudge channel surface the handlers use.
type Publisher interface {
	IsConnected() bool
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// HealthChecker reports backing-store health for the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Store       Store
	Matcher     *matching.Engine
	Syncer      Syncer
	Nudge       Publisher     // optional nudge channel
	DB          HealthChecker // optional, backs GET /health
	MaxRoutings int
}

// JobHandler handles job and routing HTTP requests
type JobHandler struct {
	logger      *slog.Logger
	store       Store
	matcher     *matching.Engine
	syncer      Syncer
	nudge       Publisher
	maxRoutings int
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	maxRoutings := deps.MaxRoutings
	if maxRoutings <= 0 {
		maxRoutings = 3
	}
	return &JobHandler{
		logger:      deps.Logger,
		store:       deps.Store,
		matcher:     deps.Matcher,
		syncer:      deps.Syncer,
		nudge:       deps.Nudge,
		maxRoutings: maxRoutings,
	}
}

// nudgeWorker tells the worker new outbox events exist so it can dispatch
// before the next poll tick. Best effort: a dead broker only costs latency.
func (h *JobHandler) nudgeWorker(ctx context.Context) {
	if h.nudge == nil || !h.nudge.IsConnected() {
		return
	}
	if err := h.nudge.PublishWithRetry(ctx, []byte(domain.EventTypeJobSync), "text/plain"); err != nil {
		h.logger.Warn("Failed to nudge worker, polling will pick the events up",
			slog.String("error", err.Error()),
		)
	}
}
