package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeengage/jobrouting/internal/domain"
)

func testLead(config domain.ProviderConfig) domain.Lead {
	return domain.Lead{
		JobID:          uuid.New(),
		RoutingID:      uuid.New(),
		Summary:        "Fix leaking pipe",
		Category:       "plumbing",
		CustomerName:   "Pat Smith",
		CustomerPhone:  "555-0101",
		CustomerEmail:  "pat@example.com",
		ServiceAddress: domain.Address{Street: "1 Main St", City: "Austin", State: "TX", ZipCode: "78701"},
		RequiredSkills: []string{"plumbing"},
		ProviderConfig: config,
		IdempotencyKey: uuid.New().String(),
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewMock())

	t.Run("returns registered provider", func(t *testing.T) {
		p, err := registry.Get(domain.ProviderMock)
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderMock, p.Type())
	})

	t.Run("unregistered type is a configuration error", func(t *testing.T) {
		_, err := registry.Get(domain.ProviderServiceTitan)
		require.Error(t, err)
		assert.True(t, IsConfiguration(err))
		assert.False(t, IsRetryable(err))
	})
}

func TestMockIdempotency(t *testing.T) {
	mock := NewMock()
	lead := testLead(nil)

	first, err := mock.CreateLead(context.Background(), lead)
	require.NoError(t, err)

	second, err := mock.CreateLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, first.ExternalID, second.ExternalID)

	other, err := mock.CreateLead(context.Background(), testLead(nil))
	require.NoError(t, err)
	assert.NotEqual(t, first.ExternalID, other.ExternalID)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"server error", &APIError{StatusCode: 500}, true},
		{"bad gateway", &APIError{StatusCode: 502}, true},
		{"request timeout", &APIError{StatusCode: 408}, true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"rate limit", &RateLimitError{RetryAfter: time.Minute}, true},
		{"configuration", &ConfigurationError{Message: "missing api_key"}, false},
		{"plain network error", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestServiceTitanCreateLead(t *testing.T) {
	t.Run("creates lead and returns external id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/tenant/t-1/leads", r.URL.Path)
			assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
			w.Write([]byte(`{"id": "st-42"}`))
		}))
		defer server.Close()

		lead := testLead(domain.ProviderConfig{
			"base_url":  server.URL,
			"api_key":   "key-1",
			"tenant_id": "t-1",
		})

		result, err := NewServiceTitan().CreateLead(context.Background(), lead)
		require.NoError(t, err)
		assert.Equal(t, "st-42", result.ExternalID)
	})

	t.Run("maps 429 to rate limit error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		lead := testLead(domain.ProviderConfig{
			"base_url":  server.URL,
			"api_key":   "key-1",
			"tenant_id": "t-1",
		})

		_, err := NewServiceTitan().CreateLead(context.Background(), lead)
		var rateErr *RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
	})

	t.Run("missing config key is a configuration error", func(t *testing.T) {
		lead := testLead(domain.ProviderConfig{"base_url": "http://example.com"})

		_, err := NewServiceTitan().CreateLead(context.Background(), lead)
		assert.True(t, IsConfiguration(err))
	})
}

func TestHousecallProGetStatus(t *testing.T) {
	completedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads/hcp-7", r.URL.Path)
		assert.Equal(t, "Token key-2", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status": "completed", "amount": 1250.50, "completed_at": "2026-08-20T12:00:00Z"}`))
	}))
	defer server.Close()

	config := domain.ProviderConfig{"base_url": server.URL, "api_key": "key-2"}

	status, err := NewHousecallPro().GetStatus(context.Background(), config, "hcp-7")
	require.NoError(t, err)
	assert.Equal(t, LeadStatusCompleted, status.Status)
	assert.Equal(t, 1250.50, status.Revenue)
	assert.Equal(t, completedAt, status.CompletedAt)
}
