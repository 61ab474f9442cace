// Package worker runs the dispatch side of the outbox pipeline: the polling
// dispatcher, the bounded sync pool, the backup sweeper, the provider status
// poller and outbox retention cleanup.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/provider"
	"github.com/tradeengage/jobrouting/shared/rabbitmq"
)

// Store is the slice of storage the worker needs.
type Store interface {
	PendingOutboxEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkEventProcessing(ctx context.Context, eventID uuid.UUID) error
	MarkEventCompleted(ctx context.Context, eventID uuid.UUID) error
	MarkEventFailed(ctx context.Context, eventID uuid.UUID, errMsg string) error
	ReturnEventToPending(ctx context.Context, eventID uuid.UUID, errMsg string) error
	CreateOutboxEvent(ctx context.Context, event *domain.OutboxEvent) error
	FindStuckRoutings(ctx context.Context, olderThan time.Duration, limit int) ([]domain.JobRouting, error)
	ResetStuckProcessing(ctx context.Context, routingID uuid.UUID, olderThan time.Duration) error
	FindSyncedForPolling(ctx context.Context, limit int) ([]domain.JobRouting, error)
	MarkRoutingCompleted(ctx context.Context, routingID uuid.UUID, revenue float64) error
	CompleteJob(ctx context.Context, jobID uuid.UUID, revenue float64, completedAt time.Time) error
	GetCompanyByID(ctx context.Context, companyID uuid.UUID) (*domain.Company, error)
	DeleteCompletedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Syncer executes the provider sync for one outbox payload.
type Syncer interface {
	Sync(ctx context.Context, payload domain.SyncPayload) error
}

// Config holds worker configuration.
type Config struct {
	Logger       *slog.Logger
	Store        Store
	Syncer       Syncer
	Registry     *provider.Registry
	RabbitClient *rabbitmq.Client // optional nudge channel

	Concurrency      int
	DispatchInterval time.Duration
	BatchSize        int
	InFlightTTL      time.Duration
	InFlightMax      int

	SweepSchedule  string
	SweepStaleness time.Duration
	SweepBatchSize int

	PollSchedule  string
	PollBatchSize int

	CleanupSchedule  string
	CleanupRetention time.Duration
}

// Worker runs the dispatch pipeline for one process.
type Worker struct {
	logger       *slog.Logger
	store        Store
	syncer       Syncer
	registry     *provider.Registry
	rabbitClient *rabbitmq.Client
	cfg          Config

	inFlight *inFlightSet
	eventsCh chan domain.OutboxEvent
	nudgeCh  chan struct{}
	cron     *cron.Cron
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a worker. Missing tunables fall back to production
// defaults.
func NewWorker(cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.DispatchInterval <= 0 {
		cfg.DispatchInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.InFlightTTL <= 0 {
		cfg.InFlightTTL = 5 * time.Minute
	}
	if cfg.InFlightMax <= 0 {
		cfg.InFlightMax = 10000
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "@every 2m"
	}
	if cfg.SweepStaleness <= 0 {
		cfg.SweepStaleness = 5 * time.Minute
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 20
	}
	if cfg.PollSchedule == "" {
		cfg.PollSchedule = "@every 60s"
	}
	if cfg.PollBatchSize <= 0 {
		cfg.PollBatchSize = 100
	}
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = "@every 12h"
	}
	if cfg.CleanupRetention <= 0 {
		cfg.CleanupRetention = 168 * time.Hour
	}

	return &Worker{
		logger:       cfg.Logger,
		store:        cfg.Store,
		syncer:       cfg.Syncer,
		registry:     cfg.Registry,
		rabbitClient: cfg.RabbitClient,
		cfg:          cfg,
		inFlight:     newInFlightSet(cfg.InFlightTTL, cfg.InFlightMax),
		eventsCh:     make(chan domain.OutboxEvent),
		nudgeCh:      make(chan struct{}, 1),
		stopChan:     make(chan struct{}),
	}
}

// Start spins up the sync pool, the scheduled jobs and the dispatch loop, then
// blocks until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.Int("concurrency", w.cfg.Concurrency),
		slog.Duration("dispatch_interval", w.cfg.DispatchInterval),
		slog.Int("batch_size", w.cfg.BatchSize),
	)

	w.spawnSyncPool(ctx)

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.cfg.SweepSchedule, func() { w.sweep(ctx) }); err != nil {
		return err
	}
	if _, err := w.cron.AddFunc(w.cfg.PollSchedule, func() { w.pollStatuses(ctx) }); err != nil {
		return err
	}
	if _, err := w.cron.AddFunc(w.cfg.CleanupSchedule, func() { w.cleanupOutbox(ctx) }); err != nil {
		return err
	}
	w.cron.Start()

	if w.rabbitClient != nil {
		w.wg.Add(1)
		go w.consumeNudges(ctx)
	}

	w.dispatchLoop(ctx)

	w.logger.Info("Worker context canceled, stopping")
	return nil
}

// Stop gracefully stops the worker, waiting for in-flight syncs to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker")
		if w.cron != nil {
			<-w.cron.Stop().Done()
		}
		close(w.stopChan)
		w.wg.Wait()
		w.logger.Info("Worker stopped")
	})
}

// dispatchLoop drives dispatch cycles: one immediately, then every tick, plus
// an early run whenever a nudge arrives.
func (w *Worker) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.DispatchInterval)
	defer ticker.Stop()

	w.dispatchCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.dispatchCycle(ctx)
		case <-w.nudgeCh:
			w.dispatchCycle(ctx)
		}
	}
}

// consumeNudges listens on the nudge queue and collapses deliveries into at
// most one pending dispatch. The nudge is best effort; polling is the
// guarantee.
func (w *Worker) consumeNudges(ctx context.Context) {
	defer w.wg.Done()

	deliveries, err := w.rabbitClient.Consume("outbox-nudge")
	if err != nil {
		w.logger.Warn("Nudge channel unavailable, relying on polling",
			slog.String("error", err.Error()),
		)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Nudge channel closed, relying on polling")
				return
			}
			_ = delivery.Ack(false)
			select {
			case w.nudgeCh <- struct{}{}:
			default:
			}
		}
	}
}
