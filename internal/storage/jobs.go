package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// RoutingInput describes one selected company for a new job. Carried into the
// transactional write and echoed into the outbox payload.
type RoutingInput struct {
	CompanyID     uuid.UUID
	Score         float64
	MatchedSkills []string
	ProviderType  domain.ProviderType
}

const insertJobQuery = `
	INSERT INTO jobs (
		id, summary, street, city, state, zip_code,
		homeowner_name, homeowner_phone, homeowner_email,
		created_by_company_id, created_by_technician_id,
		required_skills, skill_levels, category, status,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9,
		$10, $11,
		$12, $13, $14, $15,
		$16, $17
	)
`

const insertRoutingQuery = `
	INSERT INTO job_routings (
		id, job_id, company_id, sync_status,
		retry_count, max_retries, total_sync_attempts,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9
	)
`

const insertOutboxQuery = `
	INSERT INTO outbox_events (
		id, event_type, aggregate_id, event_data, status,
		retry_count, created_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7
	)
`

// CreateJobWithRoutings persists the job, one routing per selected company and
// one job_sync outbox event per routing in a single transaction. Either all
// rows are durable together or none are; this is the foundation of the
// delivery guarantee.
func (s *Store) CreateJobWithRoutings(ctx context.Context, job *domain.Job, selected []RoutingInput) ([]domain.JobRouting, []domain.OutboxEvent, error) {
	if len(selected) == 0 {
		return nil, nil, domain.ErrNoMatchingCompanies
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	job.Status = domain.JobStatusPending
	job.CreatedAt = ts
	job.UpdatedAt = ts

	_, err = tx.ExecContext(ctx, insertJobQuery,
		job.ID, job.Summary, job.Street, job.City, job.State, job.ZipCode,
		job.HomeownerName, job.HomeownerPhone, job.HomeownerEmail,
		job.CreatedByCompanyID, job.CreatedByTechnicianID,
		job.RequiredSkills, job.SkillLevels, job.Category, job.Status,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert job: %w", err)
	}

	routings := make([]domain.JobRouting, 0, len(selected))
	events := make([]domain.OutboxEvent, 0, len(selected))

	for _, sel := range selected {
		routing := domain.JobRouting{
			ID:         uuid.New(),
			JobID:      job.ID,
			CompanyID:  sel.CompanyID,
			SyncStatus: domain.SyncStatusPending,
			MaxRetries: s.maxRetries,
			CreatedAt:  ts,
			UpdatedAt:  ts,
		}

		_, err = tx.ExecContext(ctx, insertRoutingQuery,
			routing.ID, routing.JobID, routing.CompanyID, routing.SyncStatus,
			routing.RetryCount, routing.MaxRetries, routing.TotalSyncAttempts,
			routing.CreatedAt, routing.UpdatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert routing for company %s: %w", sel.CompanyID, err)
		}

		payload, err := json.Marshal(domain.SyncPayload{
			RoutingID:     routing.ID,
			JobID:         job.ID,
			CompanyID:     sel.CompanyID,
			MatchingScore: sel.Score,
			MatchedSkills: sel.MatchedSkills,
			ProviderType:  sel.ProviderType,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
		}

		event := domain.OutboxEvent{
			ID:          uuid.New(),
			EventType:   domain.EventTypeJobSync,
			AggregateID: routing.ID,
			EventData:   payload,
			Status:      domain.OutboxStatusPending,
			CreatedAt:   ts,
		}

		_, err = tx.ExecContext(ctx, insertOutboxQuery,
			event.ID, event.EventType, event.AggregateID, event.EventData,
			event.Status, event.RetryCount, event.CreatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert outbox event for routing %s: %w", routing.ID, err)
		}

		routings = append(routings, routing)
		events = append(events, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit job creation: %w", err)
	}

	s.logger.Info("Job created with routings and outbox events",
		slog.String("job_id", job.ID.String()),
		slog.Int("routings", len(routings)),
	)

	return routings, events, nil
}

// GetJobByID retrieves a job by its ID.
func (s *Store) GetJobByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, summary, street, city, state, zip_code,
		       homeowner_name, homeowner_phone, homeowner_email,
		       created_by_company_id, created_by_technician_id,
		       required_skills, skill_levels, category, status,
		       revenue, completed_at, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// JobFilter controls the job listing query.
type JobFilter struct {
	CompanyID uuid.UUID
	Status    string
	Category  string
	PageSize  int
	Cursor    *JobCursor
}

// JobCursor is the keyset pagination cursor for job listings.
type JobCursor struct {
	CreatedAt time.Time
	JobID     uuid.UUID
}

// ListJobs returns jobs matching the filter, newest first, fetching one extra
// row so the caller can tell whether more results exist.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
		SELECT id, summary, street, city, state, zip_code,
		       homeowner_name, homeowner_phone, homeowner_email,
		       created_by_company_id, created_by_technician_id,
		       required_skills, skill_levels, category, status,
		       revenue, completed_at, created_at, updated_at
		FROM jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.CompanyID != uuid.Nil {
		query += fmt.Sprintf(" AND created_by_company_id = $%d", argIdx)
		args = append(args, filter.CompanyID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filter.Category)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// CompleteJob records completion and revenue reported by the provider poll.
func (s *Store) CompleteJob(ctx context.Context, jobID uuid.UUID, revenue float64, completedAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    revenue = $2,
		    completed_at = $3,
		    updated_at = $4
		WHERE id = $5 AND status <> $1
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, revenue, completedAt, now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}
