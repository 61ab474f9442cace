package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// ServiceTitan is the client for the ServiceTitan lead API. Config keys:
// base_url, api_key, tenant_id.
type ServiceTitan struct {
	client *http.Client
}

// NewServiceTitan creates a ServiceTitan client.
func NewServiceTitan() *ServiceTitan {
	return &ServiceTitan{
		client: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Type implements Provider.
func (p *ServiceTitan) Type() domain.ProviderType {
	return domain.ProviderServiceTitan
}

type serviceTitanLeadRequest struct {
	Summary        string   `json:"summary"`
	Category       string   `json:"category"`
	CustomerName   string   `json:"customerName"`
	CustomerPhone  string   `json:"customerPhone"`
	CustomerEmail  string   `json:"customerEmail"`
	Street         string   `json:"street"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	Zip            string   `json:"zip"`
	Skills         []string `json:"skills"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

type serviceTitanLeadResponse struct {
	ID string `json:"id"`
}

// CreateLead implements Provider. The idempotency key rides both the payload
// and a header so replays resolve to the original lead.
func (p *ServiceTitan) CreateLead(ctx context.Context, lead domain.Lead) (CreateLeadResult, error) {
	config := lead.ProviderConfig

	baseURL, err := configValue(p.Type(), config, "base_url")
	if err != nil {
		return CreateLeadResult{}, err
	}
	apiKey, err := configValue(p.Type(), config, "api_key")
	if err != nil {
		return CreateLeadResult{}, err
	}
	tenantID, err := configValue(p.Type(), config, "tenant_id")
	if err != nil {
		return CreateLeadResult{}, err
	}

	req := serviceTitanLeadRequest{
		Summary:        lead.Summary,
		Category:       lead.Category,
		CustomerName:   lead.CustomerName,
		CustomerPhone:  lead.CustomerPhone,
		CustomerEmail:  lead.CustomerEmail,
		Street:         lead.ServiceAddress.Street,
		City:           lead.ServiceAddress.City,
		State:          lead.ServiceAddress.State,
		Zip:            lead.ServiceAddress.ZipCode,
		Skills:         lead.RequiredSkills,
		IdempotencyKey: lead.IdempotencyKey,
	}

	var resp serviceTitanLeadResponse
	url := fmt.Sprintf("%s/tenant/%s/leads", baseURL, tenantID)
	headers := map[string]string{
		"Authorization":   "Bearer " + apiKey,
		"Idempotency-Key": lead.IdempotencyKey,
	}
	if err := doJSON(ctx, p.client, p.Type(), http.MethodPost, url, headers, req, &resp); err != nil {
		return CreateLeadResult{}, err
	}
	if resp.ID == "" {
		return CreateLeadResult{}, &APIError{
			Provider:   p.Type(),
			StatusCode: http.StatusBadGateway,
			Message:    "lead response missing id",
		}
	}

	return CreateLeadResult{ExternalID: resp.ID}, nil
}

type serviceTitanStatusResponse struct {
	Status      string     `json:"status"`
	Revenue     float64    `json:"revenue"`
	CompletedAt *time.Time `json:"completedAt"`
}

// GetStatus implements Provider.
func (p *ServiceTitan) GetStatus(ctx context.Context, config domain.ProviderConfig, externalID string) (LeadStatus, error) {
	baseURL, err := configValue(p.Type(), config, "base_url")
	if err != nil {
		return LeadStatus{}, err
	}
	apiKey, err := configValue(p.Type(), config, "api_key")
	if err != nil {
		return LeadStatus{}, err
	}
	tenantID, err := configValue(p.Type(), config, "tenant_id")
	if err != nil {
		return LeadStatus{}, err
	}

	var resp serviceTitanStatusResponse
	url := fmt.Sprintf("%s/tenant/%s/leads/%s", baseURL, tenantID, externalID)
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	if err := doJSON(ctx, p.client, p.Type(), http.MethodGet, url, headers, nil, &resp); err != nil {
		return LeadStatus{}, err
	}

	status := LeadStatus{Status: resp.Status, Revenue: resp.Revenue}
	if resp.CompletedAt != nil {
		status.CompletedAt = *resp.CompletedAt
	}
	return status, nil
}
