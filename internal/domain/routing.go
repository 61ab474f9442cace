package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// JobRouting links a job to one candidate company and carries the sync state
// machine. sync_status is the single source of truth for who owns the work;
// it is mutated only through conditional updates in the store.
type JobRouting struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	JobID             uuid.UUID       `db:"job_id" json:"job_id"`
	CompanyID         uuid.UUID       `db:"company_id" json:"company_id"`
	SyncStatus        SyncStatus      `db:"sync_status" json:"sync_status"`
	RetryCount        int             `db:"retry_count" json:"retry_count"`
	MaxRetries        int             `db:"max_retries" json:"max_retries"`
	TotalSyncAttempts int             `db:"total_sync_attempts" json:"total_sync_attempts"`
	LastSyncAttempt   sql.NullTime    `db:"last_sync_attempt" json:"-"`
	LastSyncedAt      sql.NullTime    `db:"last_synced_at" json:"-"`
	NextRetryAt       sql.NullTime    `db:"next_retry_at" json:"-"`
	ClaimedAt         sql.NullTime    `db:"claimed_at" json:"-"`
	ErrorMessage      sql.NullString  `db:"error_message" json:"error_message,omitempty"`
	ExternalID        sql.NullString  `db:"external_id" json:"external_id,omitempty"`
	Revenue           sql.NullFloat64 `db:"revenue" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// CanSync reports whether the routing is eligible for a claim right now.
func (r *JobRouting) CanSync(now time.Time) bool {
	switch r.SyncStatus {
	case SyncStatusPending:
		return true
	case SyncStatusFailed:
		return r.ShouldRetry(now)
	default:
		return false
	}
}

// ShouldRetry reports whether a failed routing still has retry budget and its
// backoff window has elapsed.
func (r *JobRouting) ShouldRetry(now time.Time) bool {
	if r.RetryCount >= r.MaxRetries {
		return false
	}
	if !r.NextRetryAt.Valid {
		return true
	}
	return !now.Before(r.NextRetryAt.Time)
}

// NextRetryBackoff computes the backoff before the given retry attempt:
// base * 2^(retryCount-1), i.e. 5m, 10m, 20m for the default 5m base.
func NextRetryBackoff(base time.Duration, retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return base * (1 << (retryCount - 1))
}
