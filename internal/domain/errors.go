package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrRoutingNotFound is returned when a job routing cannot be found
	ErrRoutingNotFound = errors.New("job routing not found")

	// ErrCompanyNotFound is returned when a company cannot be found
	ErrCompanyNotFound = errors.New("company not found")

	// ErrRoutingAlreadyClaimed is returned when the conditional claim update
	// affects zero rows. This is the normal "someone else has it" signal,
	// not a failure.
	ErrRoutingAlreadyClaimed = errors.New("routing already claimed or not eligible for sync")

	// ErrRoutingNotSyncable is returned when a routing is in a state that
	// does not expect a provider call (e.g. already synced or terminal).
	ErrRoutingNotSyncable = errors.New("routing is not in a syncable state")

	// ErrNoMatchingCompanies is returned when the matching engine finds no
	// candidate with at least one matched skill.
	ErrNoMatchingCompanies = errors.New("no matching companies found for job requirements")

	// ErrEventAlreadyProcessing is returned when an outbox event claim
	// affects zero rows.
	ErrEventAlreadyProcessing = errors.New("outbox event already being processed")
)
