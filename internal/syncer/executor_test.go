package syncer

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/provider"
)

type fakeStore struct {
	routing *domain.JobRouting
	job     *domain.Job
	company *domain.Company

	claimErr error

	claimed            bool
	releasedTo         domain.SyncStatus
	released           bool
	syncedExternalID   string
	failedMsg          string
	permanentFailedMsg string
}

func (f *fakeStore) ClaimRouting(_ context.Context, _ uuid.UUID) (*domain.JobRouting, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.claimed = true
	claimed := *f.routing
	claimed.SyncStatus = domain.SyncStatusProcessing
	return &claimed, nil
}

func (f *fakeStore) ReleaseClaim(_ context.Context, _ uuid.UUID, backTo domain.SyncStatus) error {
	f.released = true
	f.releasedTo = backTo
	return nil
}

func (f *fakeStore) MarkRoutingSynced(_ context.Context, _ uuid.UUID, externalID string) error {
	f.syncedExternalID = externalID
	return nil
}

func (f *fakeStore) MarkRoutingFailed(_ context.Context, _ uuid.UUID, errMsg string, _ time.Duration) (domain.SyncStatus, error) {
	f.failedMsg = errMsg
	if f.routing.RetryCount+1 >= f.routing.MaxRetries {
		return domain.SyncStatusPermanentlyFailed, nil
	}
	return domain.SyncStatusFailed, nil
}

func (f *fakeStore) MarkRoutingPermanentlyFailed(_ context.Context, _ uuid.UUID, errMsg string) error {
	f.permanentFailedMsg = errMsg
	return nil
}

func (f *fakeStore) GetJobByID(_ context.Context, _ uuid.UUID) (*domain.Job, error) {
	return f.job, nil
}

func (f *fakeStore) GetCompanyByID(_ context.Context, _ uuid.UUID) (*domain.Company, error) {
	return f.company, nil
}

func testFixture(retryCount int) (*fakeStore, domain.SyncPayload) {
	jobID := uuid.New()
	companyID := uuid.New()
	routingID := uuid.New()

	store := &fakeStore{
		routing: &domain.JobRouting{
			ID:         routingID,
			JobID:      jobID,
			CompanyID:  companyID,
			SyncStatus: domain.SyncStatusPending,
			RetryCount: retryCount,
			MaxRetries: 3,
		},
		job: &domain.Job{
			ID:             jobID,
			Summary:        "Install ceiling fan",
			Category:       "electrical",
			RequiredSkills: []string{"electrical"},
		},
		company: &domain.Company{
			ID:           companyID,
			Name:         "Volt Bros",
			IsActive:     true,
			ProviderType: domain.ProviderMock,
		},
	}
	payload := domain.SyncPayload{
		RoutingID:    routingID,
		JobID:        jobID,
		CompanyID:    companyID,
		ProviderType: domain.ProviderMock,
	}
	return store, payload
}

func newTestExecutor(store Store, mock *provider.Mock, limiter *RateLimiter) *Executor {
	registry := provider.NewRegistry()
	registry.Register(mock)

	if limiter == nil {
		limiter = NewRateLimiter(100, time.Minute)
	}

	cfg := DefaultConfig()
	cfg.Retry = fastRetryConfig()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecutor(store, registry, limiter, NewCircuitBreaker(5, time.Minute), cfg, logger)
}

func TestExecutorSyncSuccess(t *testing.T) {
	store, payload := testFixture(0)
	executor := newTestExecutor(store, provider.NewMock(), nil)

	err := executor.Sync(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, store.claimed)
	assert.NotEmpty(t, store.syncedExternalID)
	assert.Empty(t, store.failedMsg)
}

func TestExecutorSkipsAlreadyClaimedRouting(t *testing.T) {
	store, payload := testFixture(0)
	store.claimErr = domain.ErrRoutingAlreadyClaimed
	executor := newTestExecutor(store, provider.NewMock(), nil)

	err := executor.Sync(context.Background(), payload)
	require.NoError(t, err)
	assert.Empty(t, store.syncedExternalID)
	assert.Empty(t, store.failedMsg)
}

// contendedStore grants the claim to exactly one caller; everyone else gets
// the zero-rows skip signal, mirroring the conditional UPDATE.
type contendedStore struct {
	*fakeStore
	won    atomic.Bool
	claims atomic.Int32
	synced atomic.Int32
}

func (s *contendedStore) ClaimRouting(_ context.Context, _ uuid.UUID) (*domain.JobRouting, error) {
	s.claims.Add(1)
	if !s.won.CompareAndSwap(false, true) {
		return nil, domain.ErrRoutingAlreadyClaimed
	}
	claimed := *s.routing
	claimed.SyncStatus = domain.SyncStatusProcessing
	return &claimed, nil
}

func (s *contendedStore) MarkRoutingSynced(_ context.Context, _ uuid.UUID, _ string) error {
	s.synced.Add(1)
	return nil
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	base, payload := testFixture(0)
	store := &contendedStore{fakeStore: base}
	executor := newTestExecutor(store, provider.NewMock(), nil)

	const racers = 16
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = executor.Sync(context.Background(), payload)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "racer %d", i)
	}
	assert.Equal(t, int32(racers), store.claims.Load())
	assert.Equal(t, int32(1), store.synced.Load(), "exactly one racer syncs the routing")
}

func TestExecutorSettlesRoutingWithExternalID(t *testing.T) {
	store, payload := testFixture(1)
	store.routing.ExternalID = sql.NullString{String: "lead-42", Valid: true}
	mock := provider.NewMock()
	mock.CreateErr = &provider.APIError{Provider: domain.ProviderMock, StatusCode: 503, Message: "unavailable"}
	executor := newTestExecutor(store, mock, nil)

	err := executor.Sync(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "lead-42", store.syncedExternalID, "existing external ID settles without a provider call")
	assert.Empty(t, store.failedMsg)
}

func TestExecutorRateLimitReleasesClaim(t *testing.T) {
	t.Run("fresh routing goes back to pending", func(t *testing.T) {
		store, payload := testFixture(0)
		limiter := NewRateLimiter(0, time.Minute)
		executor := newTestExecutor(store, provider.NewMock(), limiter)

		err := executor.Sync(context.Background(), payload)
		require.NoError(t, err)
		assert.True(t, store.released)
		assert.Equal(t, domain.SyncStatusPending, store.releasedTo)
		assert.Empty(t, store.failedMsg, "rate limiting must not consume a retry attempt")
	})

	t.Run("retried routing goes back to failed", func(t *testing.T) {
		store, payload := testFixture(2)
		limiter := NewRateLimiter(0, time.Minute)
		executor := newTestExecutor(store, provider.NewMock(), limiter)

		err := executor.Sync(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, domain.SyncStatusFailed, store.releasedTo)
	})
}

func TestExecutorConfigurationErrorFailsPermanently(t *testing.T) {
	store, payload := testFixture(0)
	mock := provider.NewMock()
	mock.CreateErr = &provider.ConfigurationError{Provider: domain.ProviderMock, Message: "missing api_key"}
	executor := newTestExecutor(store, mock, nil)

	err := executor.Sync(context.Background(), payload)
	require.NoError(t, err)
	assert.NotEmpty(t, store.permanentFailedMsg)
	assert.Empty(t, store.failedMsg)
}

func TestExecutorTransientFailureSchedulesRetry(t *testing.T) {
	store, payload := testFixture(0)
	mock := provider.NewMock()
	mock.CreateErr = &provider.APIError{Provider: domain.ProviderMock, StatusCode: 503, Message: "unavailable"}
	executor := newTestExecutor(store, mock, nil)

	err := executor.Sync(context.Background(), payload)
	require.NoError(t, err)
	assert.NotEmpty(t, store.failedMsg)
	assert.Empty(t, store.permanentFailedMsg)
	assert.Empty(t, store.syncedExternalID)
}

func TestExecutorRateLimitFeedbackFillsWindow(t *testing.T) {
	store, payload := testFixture(0)
	mock := provider.NewMock()
	mock.CreateErr = &provider.RateLimitError{Provider: domain.ProviderMock, RetryAfter: time.Minute}
	limiter := NewRateLimiter(50, time.Minute)
	executor := newTestExecutor(store, mock, limiter)

	err := executor.Sync(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 50, limiter.InWindow(string(domain.ProviderMock)))
}
