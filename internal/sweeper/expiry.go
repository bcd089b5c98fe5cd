package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/terrafield/landledger/internal/adapter"
	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/ledger"
	"github.com/terrafield/landledger/internal/logger"
	"github.com/terrafield/landledger/internal/messaging"
)

const (
	SWEEP_CYCLE_INTERVAL = 5 * time.Minute // Time to sleep between sweep cycles

	publishMaxInterval = 10 * time.Second
	publishMaxElapsed  = 1 * time.Minute
)

// ExpirySweeperConfig holds configuration for the agreement expiry sweeper
type ExpirySweeperConfig struct {
	BatchSize      int // Agreements to process per cycle
	WorkerPoolSize int // Concurrent workers
}

// expirySweeper scans for active agreements whose term has elapsed and
// publishes reclaimable notices so owners know rights are waiting to be
// reclaimed. Reclaiming itself stays a caller-driven operation.
type expirySweeper struct {
	config    *ExpirySweeperConfig
	ledger    ledger.UsageLedger
	publisher messaging.Publisher
	pool      pond.Pool
	clock     adapter.Clock
	notified  sync.Map // tenant+duration pairs already announced
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewExpirySweeper creates a new agreement expiry sweeper
func NewExpirySweeper(
	config *ExpirySweeperConfig,
	l ledger.UsageLedger,
	publisher messaging.Publisher,
	clock adapter.Clock,
) Sweeper {
	return &expirySweeper{
		config:    config,
		ledger:    l,
		publisher: publisher,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *expirySweeper) Name() string {
	return "agreement-expiry-sweeper"
}

// Start begins the sweeper's main loop
func (s *expirySweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh) // Signal that we've stopped
	}()

	logger.InfoCtx(ctx, "Starting agreement expiry sweeper",
		zap.Int("batch_size", s.config.BatchSize),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	// Create worker pool
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.BatchSize),
		pond.WithContext(ctx),
	)

	// Continuous loop - stops when context is canceled or stop is requested
	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Agreement expiry sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			s.cleanup()
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Agreement expiry sweeper stop requested")
			s.cleanup()
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
		}
	}
}

// cleanup stops the worker pool and waits for tasks to complete
func (s *expirySweeper) cleanup() {
	if s.pool != nil {
		s.pool.StopAndWait()
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *expirySweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping agreement expiry sweeper")

	// Signal stop to the main loop
	close(s.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Agreement expiry sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Agreement expiry sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle runs a single sweep cycle
func (s *expirySweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()

	elapsed, err := s.ledger.ListElapsedAgreements(ctx, uint64(startTime.Unix()))
	if err != nil {
		return fmt.Errorf("failed to list elapsed agreements: %w", err)
	}

	if len(elapsed) == 0 {
		if !s.sleep(ctx, SWEEP_CYCLE_INTERVAL) {
			return ctx.Err() // Context canceled during sleep
		}
		return nil
	}

	logger.InfoCtx(ctx, "Found elapsed agreements", zap.Int("count", len(elapsed)))

	var announced, skipped atomic.Int32
	for _, agreement := range elapsed {
		s.pool.Submit(func() {
			// Announce each tenant slot once per sealed term
			key := fmt.Sprintf("%s-%d", agreement.Tenant.Hex(), agreement.Duration)
			if _, seen := s.notified.LoadOrStore(key, struct{}{}); seen {
				skipped.Add(1)
				return
			}

			if err := s.publishWithRetry(ctx, agreement); err != nil {
				// Forget the key so the next cycle tries again
				s.notified.Delete(key)
				logger.ErrorCtx(ctx, fmt.Errorf("failed to publish reclaimable notice: %w", err),
					zap.Uint64("token_id", agreement.TokenID),
					zap.String("tenant", agreement.Tenant.Hex()),
				)
				return
			}
			announced.Add(1)
		})
	}

	// Wait for all notices to go out, then recreate the pool for the next
	// cycle
	s.pool.StopAndWait()
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.BatchSize),
		pond.WithContext(ctx),
	)

	logger.InfoCtx(ctx, "Sweep cycle completed",
		zap.Duration("duration", s.clock.Since(startTime)),
		zap.Int("elapsed", len(elapsed)),
		zap.Int32("announced", announced.Load()),
		zap.Int32("already_announced", skipped.Load()),
	)

	if !s.sleep(ctx, SWEEP_CYCLE_INTERVAL) {
		return ctx.Err() // Context canceled during sleep
	}
	return nil
}

// publishWithRetry publishes a reclaimable notice with exponential backoff
func (s *expirySweeper) publishWithRetry(ctx context.Context, agreement *domain.Agreement) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = publishMaxInterval
	b.MaxElapsedTime = publishMaxElapsed

	operation := func() error {
		return s.publisher.PublishEvent(ctx, &domain.ProtocolEvent{
			EventID:   ulid.MustNewDefault(s.clock.Now()).String(),
			Type:      domain.EventTypeReclaimable,
			Timestamp: s.clock.Now(),
			Reclaimable: &domain.ReclaimablePayload{
				TokenID: agreement.TokenID,
				Owner:   agreement.Owner,
				Tenant:  agreement.Tenant,
				Expiry:  agreement.Duration,
			},
		})
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// sleep sleeps for the given duration but can be interrupted by context cancellation
// Returns true if sleep completed normally, false if interrupted
func (s *expirySweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true // Sleep completed
	case <-ctx.Done():
		return false // Interrupted by context cancellation
	case <-s.stopChan:
		return false // Interrupted by stop signal
	}
}
