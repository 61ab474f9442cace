package domain

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SyncPayload is the event_data carried by a job_sync outbox event.
type SyncPayload struct {
	RoutingID     uuid.UUID    `json:"routing_id"`
	JobID         uuid.UUID    `json:"job_id"`
	CompanyID     uuid.UUID    `json:"company_id"`
	MatchingScore float64      `json:"matching_score"`
	MatchedSkills []string     `json:"matched_skills"`
	ProviderType  ProviderType `json:"provider_type"`
}

// OutboxEvent is a durable dispatch record created in the same transaction as
// its JobRouting. A completed event means "dispatch handed off", not "sync
// succeeded" — sync outcome lives on the routing.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregate_id"`
	EventData    json.RawMessage `db:"event_data" json:"event_data"`
	Status       OutboxStatus    `db:"status" json:"status"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	ErrorMessage sql.NullString  `db:"error_message" json:"-"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  sql.NullTime    `db:"processed_at" json:"-"`
}

// Payload decodes the event data of a job_sync event.
func (e *OutboxEvent) Payload() (SyncPayload, error) {
	var p SyncPayload
	err := json.Unmarshal(e.EventData, &p)
	return p, err
}
