// Package provider contains the clients for external field-service systems a
// routed job is pushed to. Every provider implements the same two-operation
// capability surface; the sync executor never knows which concrete system it
// is talking to.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// CreateLeadResult is the provider's acknowledgment of a pushed lead.
type CreateLeadResult struct {
	ExternalID string
}

// LeadStatus is the provider's view of a previously pushed lead.
type LeadStatus struct {
	Status      string
	Revenue     float64
	CompletedAt time.Time
}

// Lead status values reported by providers.
const (
	LeadStatusOpen      = "open"
	LeadStatusCompleted = "completed"
	LeadStatusCanceled  = "canceled"
)

// Provider is the capability surface of one external system. CreateLead must
// be idempotent on the lead's IdempotencyKey: pushing the same key twice
// returns the original external ID.
type Provider interface {
	// Type identifies the provider implementation.
	Type() domain.ProviderType
	// CreateLead pushes the lead and returns the provider-side ID.
	CreateLead(ctx context.Context, lead domain.Lead) (CreateLeadResult, error)
	// GetStatus reports the current state of a previously created lead.
	GetStatus(ctx context.Context, config domain.ProviderConfig, externalID string) (LeadStatus, error)
}

// Registry is a lookup table from provider type to client. Registration
// happens at startup; lookups are concurrent.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderType]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.ProviderType]Provider)}
}

// Register adds a provider client, replacing any previous one of the same type.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Type()] = p
}

// Get returns the client for the given provider type. A company pointing at
// an unregistered provider is a configuration problem, not a transient one.
func (r *Registry) Get(providerType domain.ProviderType) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[providerType]
	if !ok {
		return nil, &ConfigurationError{
			Provider: providerType,
			Message:  fmt.Sprintf("no client registered for provider type %q", providerType),
		}
	}
	return p, nil
}
