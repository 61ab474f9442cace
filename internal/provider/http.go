package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tradeengage/jobrouting/internal/domain"
)

const defaultRequestTimeout = 30 * time.Second

// doJSON issues one JSON request against a provider API and decodes the
// response body into out (when out is non-nil). Non-2xx responses become
// typed provider errors.
func doJSON(ctx context.Context, client *http.Client, providerType domain.ProviderType, method, url string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", providerType, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", providerType, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", providerType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Provider:   providerType,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			Provider:   providerType,
			StatusCode: resp.StatusCode,
			Message:    string(msg),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", providerType, err)
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// configValue pulls a required key out of a company's provider config.
func configValue(providerType domain.ProviderType, config domain.ProviderConfig, key string) (string, error) {
	v, ok := config[key]
	if !ok || v == "" {
		return "", &ConfigurationError{
			Provider: providerType,
			Message:  fmt.Sprintf("missing required config key %q", key),
		}
	}
	return v, nil
}
