package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/domain"
)

const selectOutboxColumns = `
	id, event_type, aggregate_id, event_data, status,
	retry_count, error_message, created_at, processed_at
`

// PendingOutboxEvents returns the oldest pending events up to the batch size.
// Creation order is the dispatch order.
func (s *Store) PendingOutboxEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `
		SELECT` + selectOutboxColumns + `
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`

	var events []domain.OutboxEvent
	if err := s.db.SelectContext(ctx, &events, query, domain.OutboxStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to load pending outbox events: %w", err)
	}
	return events, nil
}

// MarkEventProcessing transitions a pending event to processing. Zero rows
// means another dispatcher already took it.
func (s *Store) MarkEventProcessing(ctx context.Context, eventID uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.OutboxStatusProcessing, eventID, domain.OutboxStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark event processing: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrEventAlreadyProcessing
	}
	return nil
}

// MarkEventCompleted records that the event's sync work was handed to an
// executor. Hand-off, not sync outcome: the routing row carries the outcome.
func (s *Store) MarkEventCompleted(ctx context.Context, eventID uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
		    processed_at = $2,
		    error_message = NULL
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.OutboxStatusCompleted, now(), eventID); err != nil {
		return fmt.Errorf("failed to mark event completed: %w", err)
	}
	return nil
}

// MarkEventFailed records a terminal event failure. Used for events that can
// never dispatch, such as undecodable payloads or unknown event types; the
// routing behind a failed event is recovered by the sweeper.
func (s *Store) MarkEventFailed(ctx context.Context, eventID uuid.UUID, errMsg string) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
		    retry_count = retry_count + 1,
		    error_message = $2
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.OutboxStatusFailed, errMsg, eventID); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

// ReturnEventToPending puts a dispatched event back in the queue with an
// incremented retry count. Used when a sync outcome could not be recorded and
// the event must be redelivered.
func (s *Store) ReturnEventToPending(ctx context.Context, eventID uuid.UUID, errMsg string) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
		    retry_count = retry_count + 1,
		    error_message = $2
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.OutboxStatusPending, errMsg, eventID); err != nil {
		return fmt.Errorf("failed to return event to pending: %w", err)
	}
	return nil
}

// GetOutboxEventByID retrieves a single event.
func (s *Store) GetOutboxEventByID(ctx context.Context, eventID uuid.UUID) (*domain.OutboxEvent, error) {
	query := `SELECT` + selectOutboxColumns + `FROM outbox_events WHERE id = $1`

	var event domain.OutboxEvent
	if err := s.db.GetContext(ctx, &event, query, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event %s not found", eventID)
		}
		return nil, fmt.Errorf("failed to get outbox event: %w", err)
	}
	return &event, nil
}

// CreateOutboxEvent inserts a standalone job_sync event outside the job
// creation transaction. Used by the sweeper when it re-dispatches a stuck
// routing.
func (s *Store) CreateOutboxEvent(ctx context.Context, event *domain.OutboxEvent) error {
	event.CreatedAt = now()

	_, err := s.db.ExecContext(ctx, insertOutboxQuery,
		event.ID, event.EventType, event.AggregateID, event.EventData,
		event.Status, event.RetryCount, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// DeleteCompletedEventsBefore removes completed outbox events older than the
// cutoff and returns how many rows were removed.
func (s *Store) DeleteCompletedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = $1 AND processed_at IS NOT NULL AND processed_at < $2
	`

	res, err := s.db.ExecContext(ctx, query, domain.OutboxStatusCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed outbox events: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted outbox events: %w", err)
	}
	return deleted, nil
}
