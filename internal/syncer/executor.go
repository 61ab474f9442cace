package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/metrics"
	"github.com/tradeengage/jobrouting/internal/provider"
)

// Store is the slice of storage the executor needs.
type Store interface {
	ClaimRouting(ctx context.Context, routingID uuid.UUID) (*domain.JobRouting, error)
	ReleaseClaim(ctx context.Context, routingID uuid.UUID, backTo domain.SyncStatus) error
	MarkRoutingSynced(ctx context.Context, routingID uuid.UUID, externalID string) error
	MarkRoutingFailed(ctx context.Context, routingID uuid.UUID, errMsg string, backoffBase time.Duration) (domain.SyncStatus, error)
	MarkRoutingPermanentlyFailed(ctx context.Context, routingID uuid.UUID, errMsg string) error
	GetJobByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)
	GetCompanyByID(ctx context.Context, companyID uuid.UUID) (*domain.Company, error)
}

// Config tunes one executor.
type Config struct {
	// RoutingBackoffBase is the base of the routing-level retry schedule
	// (5m, 10m, 20m by default).
	RoutingBackoffBase time.Duration
	// AttemptTimeout bounds one full sync attempt including its in-attempt
	// retries.
	AttemptTimeout time.Duration
	// Retry bounds the in-attempt retry loop.
	Retry RetryConfig
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RoutingBackoffBase: 5 * time.Minute,
		AttemptTimeout:     30 * time.Second,
		Retry:              DefaultRetryConfig(),
	}
}

// Executor performs the provider sync for one routing: claim, rate limit,
// circuit breaker, bounded retries, then the terminal state transition.
type Executor struct {
	store    Store
	registry *provider.Registry
	limiter  *RateLimiter
	breaker  *CircuitBreaker
	cfg      Config
	logger   *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(store Store, registry *provider.Registry, limiter *RateLimiter, breaker *CircuitBreaker, cfg Config, logger *slog.Logger) *Executor {
	if cfg.RoutingBackoffBase <= 0 {
		cfg.RoutingBackoffBase = 5 * time.Minute
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Executor{
		store:    store,
		registry: registry,
		limiter:  limiter,
		breaker:  breaker,
		cfg:      cfg,
		logger:   logger,
	}
}

// Sync processes one job_sync payload end to end. Returning nil means the
// routing reached a decided state (synced, failed with retry scheduled, or
// permanently failed) or was legitimately skipped; an error means the outcome
// could not be recorded and the event should be redelivered.
func (e *Executor) Sync(ctx context.Context, payload domain.SyncPayload) error {
	logger := e.logger.With(
		slog.String("routing_id", payload.RoutingID.String()),
		slog.String("job_id", payload.JobID.String()),
		slog.String("provider", string(payload.ProviderType)),
	)

	routing, err := e.store.ClaimRouting(ctx, payload.RoutingID)
	if err != nil {
		if errors.Is(err, domain.ErrRoutingAlreadyClaimed) {
			// Another worker owns it or it already reached a terminal state.
			logger.Debug("Routing not claimable, skipping")
			return nil
		}
		return fmt.Errorf("failed to claim routing: %w", err)
	}

	if routing.ExternalID.Valid {
		// A previous attempt already created the lead but died before the
		// status write landed. Settle the routing without another call.
		if err := e.store.MarkRoutingSynced(ctx, payload.RoutingID, routing.ExternalID.String); err != nil {
			return fmt.Errorf("failed to settle already-synced routing: %w", err)
		}
		logger.Info("Routing already had an external ID, settled without provider call")
		return nil
	}

	limitKey := string(payload.ProviderType)

	if !e.limiter.Allow(limitKey) {
		// Denied before any provider call: put the claim back without
		// consuming a retry attempt. The sweeper or next dispatch retries.
		metrics.RateLimitDenials.WithLabelValues(limitKey).Inc()
		logger.Info("Rate limit reached, releasing claim")

		backTo := domain.SyncStatusPending
		if routing.RetryCount > 0 {
			backTo = domain.SyncStatusFailed
		}
		if err := e.store.ReleaseClaim(ctx, payload.RoutingID, backTo); err != nil {
			return fmt.Errorf("failed to release rate-limited claim: %w", err)
		}
		return nil
	}

	started := time.Now()
	result, syncErr := e.callProvider(ctx, payload, logger)
	metrics.SyncDuration.WithLabelValues(limitKey).Observe(time.Since(started).Seconds())
	if syncErr == nil {
		if err := e.store.MarkRoutingSynced(ctx, payload.RoutingID, result.ExternalID); err != nil {
			return fmt.Errorf("sync succeeded but status update failed: %w", err)
		}
		metrics.SyncsTotal.WithLabelValues(limitKey, "synced").Inc()
		logger.Info("Routing synced", slog.String("external_id", result.ExternalID))
		return nil
	}

	if provider.IsConfiguration(syncErr) {
		// Retrying cannot fix broken configuration; fail permanently without
		// burning the retry budget on it.
		if err := e.store.MarkRoutingPermanentlyFailed(ctx, payload.RoutingID, syncErr.Error()); err != nil {
			return fmt.Errorf("failed to mark routing permanently failed: %w", err)
		}
		metrics.SyncsTotal.WithLabelValues(limitKey, "permanently_failed").Inc()
		logger.Error("Provider configuration broken, routing permanently failed",
			slog.String("error", syncErr.Error()))
		return nil
	}

	status, err := e.store.MarkRoutingFailed(ctx, payload.RoutingID, syncErr.Error(), e.cfg.RoutingBackoffBase)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	metrics.SyncsTotal.WithLabelValues(limitKey, string(status)).Inc()
	logger.Warn("Routing sync failed",
		slog.String("status", string(status)),
		slog.String("error", syncErr.Error()),
	)
	return nil
}

// callProvider resolves the provider and pushes the lead, with breaker
// admission and bounded retries around the call.
func (e *Executor) callProvider(ctx context.Context, payload domain.SyncPayload, logger *slog.Logger) (provider.CreateLeadResult, error) {
	job, err := e.store.GetJobByID(ctx, payload.JobID)
	if err != nil {
		return provider.CreateLeadResult{}, fmt.Errorf("failed to load job: %w", err)
	}
	company, err := e.store.GetCompanyByID(ctx, payload.CompanyID)
	if err != nil {
		return provider.CreateLeadResult{}, fmt.Errorf("failed to load company: %w", err)
	}

	client, err := e.registry.Get(company.ProviderType)
	if err != nil {
		return provider.CreateLeadResult{}, err
	}

	routing := &domain.JobRouting{ID: payload.RoutingID, JobID: payload.JobID, CompanyID: payload.CompanyID}
	lead := domain.NewLead(job, routing, company)
	breakerKey := string(company.ProviderType)

	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()

	var result provider.CreateLeadResult
	err = Retry(attemptCtx, e.cfg.Retry, func(ctx context.Context) error {
		if err := e.breaker.Allow(breakerKey); err != nil {
			metrics.BreakerRejections.WithLabelValues(breakerKey).Inc()
			return err
		}

		res, callErr := client.CreateLead(ctx, lead)
		if callErr != nil {
			var rateErr *provider.RateLimitError
			if errors.As(callErr, &rateErr) {
				// Provider-side pushback fills the local window too, so other
				// claims stop hitting the same wall.
				e.limiter.Observe(breakerKey)
			}
			e.breaker.Failure(breakerKey)
			logger.Warn("Provider call failed", slog.String("error", callErr.Error()))
			return callErr
		}

		e.breaker.Success(breakerKey)
		result = res
		return nil
	})
	if err != nil {
		return provider.CreateLeadResult{}, err
	}
	return result, nil
}
