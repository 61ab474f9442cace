package domain

// SyncStatus is the job routing sync state machine.
type SyncStatus string

const (
	SyncStatusPending           SyncStatus = "pending"
	SyncStatusProcessing        SyncStatus = "processing"
	SyncStatusSynced            SyncStatus = "synced"
	SyncStatusFailed            SyncStatus = "failed"
	SyncStatusCompleted         SyncStatus = "completed"
	SyncStatusPermanentlyFailed SyncStatus = "permanently_failed"
)

// IsTerminal reports whether no further sync processing is possible.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusPermanentlyFailed
}

// CanBeClaimed reports whether the status allows the processing claim.
func (s SyncStatus) CanBeClaimed() bool {
	return s == SyncStatusPending || s == SyncStatusFailed
}

// OutboxStatus is the outbox event processing state.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// EventTypeJobSync is the only outbox event type dispatched by the worker.
const EventTypeJobSync = "job_sync"

// ProviderType identifies the external provider a company is configured with.
type ProviderType string

const (
	ProviderNone         ProviderType = ""
	ProviderMock         ProviderType = "mock"
	ProviderServiceTitan ProviderType = "servicetitan"
	ProviderHousecallPro ProviderType = "housecallpro"
)

// Configured reports whether the company has any provider at all.
func (p ProviderType) Configured() bool {
	return p != ProviderNone && p != "none"
}

// SkillLevel is the ordinal proficiency scale used by matching.
type SkillLevel string

const (
	SkillLevelBasic        SkillLevel = "basic"
	SkillLevelIntermediate SkillLevel = "intermediate"
	SkillLevelExpert       SkillLevel = "expert"
)

// Rank returns the ordinal value of the level (basic < intermediate < expert).
// Unknown levels rank as basic.
func (l SkillLevel) Rank() int {
	switch l {
	case SkillLevelExpert:
		return 3
	case SkillLevelIntermediate:
		return 2
	default:
		return 1
	}
}

// Valid reports whether the level is one of the known values.
func (l SkillLevel) Valid() bool {
	switch l {
	case SkillLevelBasic, SkillLevelIntermediate, SkillLevelExpert:
		return true
	}
	return false
}

// Job lifecycle status. Completion is driven by the status poller.
const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
)
