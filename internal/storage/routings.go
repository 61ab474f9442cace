package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/domain"
)

const selectRoutingColumns = `
	id, job_id, company_id, sync_status,
	retry_count, max_retries, total_sync_attempts,
	last_sync_attempt, last_synced_at, next_retry_at, claimed_at,
	error_message, external_id, revenue, created_at, updated_at
`

// GetRoutingByID retrieves a routing by its ID.
func (s *Store) GetRoutingByID(ctx context.Context, routingID uuid.UUID) (*domain.JobRouting, error) {
	query := `SELECT` + selectRoutingColumns + `FROM job_routings WHERE id = $1`

	var routing domain.JobRouting
	if err := s.db.GetContext(ctx, &routing, query, routingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoutingNotFound
		}
		return nil, fmt.Errorf("failed to get routing: %w", err)
	}

	return &routing, nil
}

// GetRoutingsByJobID returns all routings of a job, best score first is not
// tracked here so ordering is by creation.
func (s *Store) GetRoutingsByJobID(ctx context.Context, jobID uuid.UUID) ([]domain.JobRouting, error) {
	query := `SELECT` + selectRoutingColumns + `FROM job_routings WHERE job_id = $1 ORDER BY created_at, id`

	var routings []domain.JobRouting
	if err := s.db.SelectContext(ctx, &routings, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list routings for job %s: %w", jobID, err)
	}
	return routings, nil
}

// ClaimRouting atomically transitions an eligible routing to processing and
// returns the claimed row. Eligible means pending, or failed with retry budget
// left and its backoff window elapsed. Zero rows updated means another worker
// holds the routing or it is not claimable, reported as
// ErrRoutingAlreadyClaimed; callers treat that as a skip, not a failure.
func (s *Store) ClaimRouting(ctx context.Context, routingID uuid.UUID) (*domain.JobRouting, error) {
	query := `
		UPDATE job_routings
		SET sync_status = $1,
		    claimed_at = $2,
		    last_sync_attempt = $2,
		    total_sync_attempts = total_sync_attempts + 1,
		    updated_at = $2
		WHERE id = $3
		  AND (
		    sync_status = $4
		    OR (
		      sync_status = $5
		      AND retry_count < max_retries
		      AND (next_retry_at IS NULL OR next_retry_at <= $2)
		    )
		  )
		RETURNING` + selectRoutingColumns

	var routing domain.JobRouting
	err := s.db.GetContext(ctx, &routing, query,
		domain.SyncStatusProcessing, now(), routingID,
		domain.SyncStatusPending, domain.SyncStatusFailed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoutingAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim routing: %w", err)
	}

	return &routing, nil
}

// ReleaseClaim puts a processing routing back to its pre-claim status without
// consuming a retry attempt. Used when the rate limiter denies the sync before
// any provider call is made.
func (s *Store) ReleaseClaim(ctx context.Context, routingID uuid.UUID, backTo domain.SyncStatus) error {
	query := `
		UPDATE job_routings
		SET sync_status = $1,
		    claimed_at = NULL,
		    total_sync_attempts = GREATEST(total_sync_attempts - 1, 0),
		    updated_at = $2
		WHERE id = $3 AND sync_status = $4
	`

	res, err := s.db.ExecContext(ctx, query, backTo, now(), routingID, domain.SyncStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRoutingNotSyncable
	}
	return nil
}

// MarkRoutingSynced records a successful provider sync. external_id is
// write-once: a later success for the same routing keeps the first ID.
func (s *Store) MarkRoutingSynced(ctx context.Context, routingID uuid.UUID, externalID string) error {
	ts := now()
	query := `
		UPDATE job_routings
		SET sync_status = $1,
		    external_id = COALESCE(external_id, $2),
		    last_synced_at = $3,
		    retry_count = 0,
		    error_message = NULL,
		    next_retry_at = NULL,
		    claimed_at = NULL,
		    updated_at = $3
		WHERE id = $4 AND sync_status = $5
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.SyncStatusSynced, externalID, ts, routingID, domain.SyncStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark routing synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRoutingNotSyncable
	}

	s.logger.Info("Routing synced",
		slog.String("routing_id", routingID.String()),
		slog.String("external_id", externalID),
	)
	return nil
}

// MarkRoutingFailed records a failed attempt. The routing goes to failed with
// an incremented retry_count and a next_retry_at, or to permanently_failed
// once the retry budget is exhausted. Returns the resulting status.
func (s *Store) MarkRoutingFailed(ctx context.Context, routingID uuid.UUID, errMsg string, backoffBase time.Duration) (domain.SyncStatus, error) {
	ts := now()
	query := `
		UPDATE job_routings
		SET retry_count = retry_count + 1,
		    sync_status = CASE
		      WHEN retry_count + 1 >= max_retries THEN $1
		      ELSE $2
		    END,
		    next_retry_at = CASE
		      WHEN retry_count + 1 >= max_retries THEN NULL
		      ELSE $5 + make_interval(secs => $3 * power(2, retry_count))
		    END,
		    error_message = $4,
		    claimed_at = NULL,
		    updated_at = $5
		WHERE id = $6 AND sync_status = $7
		RETURNING sync_status, retry_count
	`

	var result struct {
		SyncStatus domain.SyncStatus `db:"sync_status"`
		RetryCount int               `db:"retry_count"`
	}
	err := s.db.GetContext(ctx, &result, query,
		domain.SyncStatusPermanentlyFailed, domain.SyncStatusFailed,
		backoffBase.Seconds(),
		errMsg, ts, routingID, domain.SyncStatusProcessing,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrRoutingNotSyncable
		}
		return "", fmt.Errorf("failed to mark routing failed: %w", err)
	}

	s.logger.Warn("Routing sync failed",
		slog.String("routing_id", routingID.String()),
		slog.String("status", string(result.SyncStatus)),
		slog.Int("retry_count", result.RetryCount),
		slog.String("error", errMsg),
	)
	return result.SyncStatus, nil
}

// MarkRoutingPermanentlyFailed short-circuits the retry loop for errors that
// retrying cannot fix, such as broken provider configuration.
func (s *Store) MarkRoutingPermanentlyFailed(ctx context.Context, routingID uuid.UUID, errMsg string) error {
	query := `
		UPDATE job_routings
		SET sync_status = $1,
		    error_message = $2,
		    next_retry_at = NULL,
		    claimed_at = NULL,
		    updated_at = $3
		WHERE id = $4 AND sync_status = $5
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.SyncStatusPermanentlyFailed, errMsg, now(), routingID, domain.SyncStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark routing permanently failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRoutingNotSyncable
	}
	return nil
}

// MarkRoutingCompleted records that the provider reported the lead as done,
// together with the revenue it reported.
func (s *Store) MarkRoutingCompleted(ctx context.Context, routingID uuid.UUID, revenue float64) error {
	query := `
		UPDATE job_routings
		SET sync_status = $1,
		    revenue = $2,
		    updated_at = $3
		WHERE id = $4 AND sync_status = $5
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.SyncStatusCompleted, revenue, now(), routingID, domain.SyncStatusSynced)
	if err != nil {
		return fmt.Errorf("failed to mark routing completed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRoutingNotSyncable
	}
	return nil
}

// FindStuckRoutings returns routings that look abandoned: pending past the
// staleness window (their outbox event was lost or never dispatched) or
// processing past the window (their worker died mid-flight). The backup
// sweeper re-dispatches these.
func (s *Store) FindStuckRoutings(ctx context.Context, olderThan time.Duration, limit int) ([]domain.JobRouting, error) {
	cutoff := now().Add(-olderThan)
	query := `
		SELECT` + selectRoutingColumns + `
		FROM job_routings
		WHERE (sync_status = $1 AND created_at < $2)
		   OR (sync_status = $3 AND claimed_at IS NOT NULL AND claimed_at < $2)
		ORDER BY created_at
		LIMIT $4
	`

	var routings []domain.JobRouting
	err := s.db.SelectContext(ctx, &routings, query,
		domain.SyncStatusPending, cutoff, domain.SyncStatusProcessing, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stuck routings: %w", err)
	}
	return routings, nil
}

// ResetStuckProcessing moves a stale processing routing back to pending so it
// can be claimed again. Conditional on the same staleness the sweeper saw.
func (s *Store) ResetStuckProcessing(ctx context.Context, routingID uuid.UUID, olderThan time.Duration) error {
	cutoff := now().Add(-olderThan)
	query := `
		UPDATE job_routings
		SET sync_status = $1,
		    claimed_at = NULL,
		    updated_at = $2
		WHERE id = $3 AND sync_status = $4 AND claimed_at IS NOT NULL AND claimed_at < $5
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.SyncStatusPending, now(), routingID, domain.SyncStatusProcessing, cutoff)
	if err != nil {
		return fmt.Errorf("failed to reset stuck routing: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRoutingNotSyncable
	}
	return nil
}

// ResetForResync puts a failed or permanently failed routing back to pending
// with a fresh retry budget. Backs the manual resync endpoint.
func (s *Store) ResetForResync(ctx context.Context, routingID uuid.UUID) error {
	query := `
		UPDATE job_routings
		SET sync_status = $1,
		    retry_count = 0,
		    next_retry_at = NULL,
		    error_message = NULL,
		    claimed_at = NULL,
		    updated_at = $2
		WHERE id = $3 AND sync_status IN ($4, $5)
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.SyncStatusPending, now(), routingID,
		domain.SyncStatusFailed, domain.SyncStatusPermanentlyFailed)
	if err != nil {
		return fmt.Errorf("failed to reset routing for resync: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRoutingNotSyncable
	}
	return nil
}

// FindSyncedForPolling returns synced routings with an external ID, oldest
// sync first, for the provider status poller.
func (s *Store) FindSyncedForPolling(ctx context.Context, limit int) ([]domain.JobRouting, error) {
	query := `
		SELECT` + selectRoutingColumns + `
		FROM job_routings
		WHERE sync_status = $1 AND external_id IS NOT NULL
		ORDER BY last_synced_at NULLS FIRST, id
		LIMIT $2
	`

	var routings []domain.JobRouting
	if err := s.db.SelectContext(ctx, &routings, query, domain.SyncStatusSynced, limit); err != nil {
		return nil, fmt.Errorf("failed to find synced routings: %w", err)
	}
	return routings, nil
}
