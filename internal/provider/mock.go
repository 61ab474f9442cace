package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// Mock is an in-memory provider for local development and tests. Leads are
// idempotent on their key; injected errors drive failure-path tests.
type Mock struct {
	mu    sync.Mutex
	leads map[string]string // idempotency key -> external ID
	seq   int

	// CreateErr and StatusErr, when set, are returned by the respective calls.
	CreateErr error
	StatusErr error

	// Statuses overrides GetStatus per external ID.
	Statuses map[string]LeadStatus
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{
		leads:    make(map[string]string),
		Statuses: make(map[string]LeadStatus),
	}
}

// Type implements Provider.
func (p *Mock) Type() domain.ProviderType {
	return domain.ProviderMock
}

// CreateLead implements Provider.
func (p *Mock) CreateLead(_ context.Context, lead domain.Lead) (CreateLeadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateErr != nil {
		return CreateLeadResult{}, p.CreateErr
	}

	if id, ok := p.leads[lead.IdempotencyKey]; ok {
		return CreateLeadResult{ExternalID: id}, nil
	}

	p.seq++
	id := fmt.Sprintf("mock-%d", p.seq)
	p.leads[lead.IdempotencyKey] = id
	return CreateLeadResult{ExternalID: id}, nil
}

// GetStatus implements Provider. Unknown leads report as open.
func (p *Mock) GetStatus(_ context.Context, _ domain.ProviderConfig, externalID string) (LeadStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.StatusErr != nil {
		return LeadStatus{}, p.StatusErr
	}
	if status, ok := p.Statuses[externalID]; ok {
		return status, nil
	}
	return LeadStatus{Status: LeadStatusOpen}, nil
}

// Complete marks a lead as completed with the given revenue, as the external
// system would after the work is done.
func (p *Mock) Complete(externalID string, revenue float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Statuses[externalID] = LeadStatus{
		Status:      LeadStatusCompleted,
		Revenue:     revenue,
		CompletedAt: time.Now().UTC(),
	}
}
