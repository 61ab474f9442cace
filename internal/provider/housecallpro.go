package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// HousecallPro is the client for the Housecall Pro lead API. Config keys:
// base_url, api_key.
type HousecallPro struct {
	client *http.Client
}

// NewHousecallPro creates a Housecall Pro client.
func NewHousecallPro() *HousecallPro {
	return &HousecallPro{
		client: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Type implements Provider.
func (p *HousecallPro) Type() domain.ProviderType {
	return domain.ProviderHousecallPro
}

type housecallLeadRequest struct {
	Description string `json:"description"`
	LeadSource  string `json:"lead_source"`
	Customer    struct {
		Name  string `json:"name"`
		Phone string `json:"mobile_number"`
		Email string `json:"email"`
	} `json:"customer"`
	Address struct {
		Street string `json:"street"`
		City   string `json:"city"`
		State  string `json:"state"`
		Zip    string `json:"zip"`
	} `json:"address"`
	ExternalRef string `json:"external_ref"`
}

type housecallLeadResponse struct {
	LeadID string `json:"lead_id"`
}

// CreateLead implements Provider. external_ref carries the idempotency key;
// Housecall Pro returns the existing lead when the ref was seen before.
func (p *HousecallPro) CreateLead(ctx context.Context, lead domain.Lead) (CreateLeadResult, error) {
	config := lead.ProviderConfig

	baseURL, err := configValue(p.Type(), config, "base_url")
	if err != nil {
		return CreateLeadResult{}, err
	}
	apiKey, err := configValue(p.Type(), config, "api_key")
	if err != nil {
		return CreateLeadResult{}, err
	}

	req := housecallLeadRequest{
		Description: fmt.Sprintf("[%s] %s", lead.Category, lead.Summary),
		LeadSource:  "tradeengage",
		ExternalRef: lead.IdempotencyKey,
	}
	req.Customer.Name = lead.CustomerName
	req.Customer.Phone = lead.CustomerPhone
	req.Customer.Email = lead.CustomerEmail
	req.Address.Street = lead.ServiceAddress.Street
	req.Address.City = lead.ServiceAddress.City
	req.Address.State = lead.ServiceAddress.State
	req.Address.Zip = lead.ServiceAddress.ZipCode

	var resp housecallLeadResponse
	headers := map[string]string{"Authorization": "Token " + apiKey}
	if err := doJSON(ctx, p.client, p.Type(), http.MethodPost, baseURL+"/leads", headers, req, &resp); err != nil {
		return CreateLeadResult{}, err
	}
	if resp.LeadID == "" {
		return CreateLeadResult{}, &APIError{
			Provider:   p.Type(),
			StatusCode: http.StatusBadGateway,
			Message:    "lead response missing lead_id",
		}
	}

	return CreateLeadResult{ExternalID: resp.LeadID}, nil
}

type housecallStatusResponse struct {
	Status      string     `json:"status"`
	Amount      float64    `json:"amount"`
	CompletedAt *time.Time `json:"completed_at"`
}

// GetStatus implements Provider.
func (p *HousecallPro) GetStatus(ctx context.Context, config domain.ProviderConfig, externalID string) (LeadStatus, error) {
	baseURL, err := configValue(p.Type(), config, "base_url")
	if err != nil {
		return LeadStatus{}, err
	}
	apiKey, err := configValue(p.Type(), config, "api_key")
	if err != nil {
		return LeadStatus{}, err
	}

	var resp housecallStatusResponse
	headers := map[string]string{"Authorization": "Token " + apiKey}
	url := fmt.Sprintf("%s/leads/%s", baseURL, externalID)
	if err := doJSON(ctx, p.client, p.Type(), http.MethodGet, url, headers, nil, &resp); err != nil {
		return LeadStatus{}, err
	}

	status := LeadStatus{Status: resp.Status, Revenue: resp.Amount}
	if resp.CompletedAt != nil {
		status.CompletedAt = *resp.CompletedAt
	}
	return status, nil
}
