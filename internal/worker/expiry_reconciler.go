package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Awerito/ulatickets-api/internal/metrics"
	"github.com/Awerito/ulatickets-api/internal/service"
)

// ExpiryReconcilerConfig contains configuration for the expiry reconciler
type ExpiryReconcilerConfig struct {
	// SweepInterval is the interval between expiry sweeps
	SweepInterval time.Duration
}

// DefaultExpiryReconcilerConfig returns default configuration
func DefaultExpiryReconcilerConfig() *ExpiryReconcilerConfig {
	return &ExpiryReconcilerConfig{
		SweepInterval: 5 * time.Minute,
	}
}

// ExpiryReconciler periodically expires overdue holds and returns their
// stock. Sweeps never overlap: a tick that fires while a sweep is still
// running is skipped.
type ExpiryReconciler struct {
	reservations service.ReservationService
	config       *ExpiryReconcilerConfig
	log          *zap.Logger
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool

	sweepMu sync.Mutex

	// Stats
	totalRuns        int64
	totalExpired     int64
	lastSweepTime    time.Time
	lastSweepSummary service.SweepSummary
}

// NewExpiryReconciler creates a new expiry reconciler
func NewExpiryReconciler(
	reservations service.ReservationService,
	config *ExpiryReconcilerConfig,
	log *zap.Logger,
) *ExpiryReconciler {
	if config == nil {
		config = DefaultExpiryReconcilerConfig()
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpiryReconciler{
		reservations: reservations,
		config:       config,
		log:          log,
		stopCh:       make(chan struct{}),
	}
}

// Start starts the reconciler loop
func (r *ExpiryReconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("expiry reconciler already running")
	}
	r.running = true
	r.mu.Unlock()

	r.log.Info("starting expiry reconciler",
		zap.Duration("sweep_interval", r.config.SweepInterval))

	r.wg.Add(1)
	go r.loop(ctx)

	return nil
}

// Stop stops the reconciler and waits for an in-flight sweep to finish
func (r *ExpiryReconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()
	r.log.Info("expiry reconciler stopped")
}

func (r *ExpiryReconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	// Run immediately on start so a restart doesn't wait a full interval
	// before reclaiming stale holds.
	r.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass. Safe to call concurrently with the ticker
// loop; only one sweep runs at a time and late callers return immediately.
func (r *ExpiryReconciler) Sweep(ctx context.Context) {
	if !r.sweepMu.TryLock() {
		r.log.Debug("sweep already in progress, skipping")
		return
	}
	defer r.sweepMu.Unlock()

	start := time.Now()
	summary, err := r.reservations.SweepExpired(ctx)
	if err != nil {
		r.log.Error("expiry sweep failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.totalRuns++
	r.totalExpired += int64(summary.Reservations)
	r.lastSweepTime = start
	r.lastSweepSummary = *summary
	r.mu.Unlock()

	if metrics.SweepRuns != nil {
		metrics.SweepRuns.Add(ctx, 1)
	}
	if metrics.SweepDuration != nil {
		metrics.SweepDuration.Record(ctx, time.Since(start).Seconds())
	}
}

// Stats returns reconciler statistics
func (r *ExpiryReconciler) Stats() *ExpiryReconcilerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &ExpiryReconcilerStats{
		IsRunning:     r.running,
		TotalRuns:     r.totalRuns,
		TotalExpired:  r.totalExpired,
		LastSweepTime: r.lastSweepTime,
		LastSweep:     r.lastSweepSummary,
	}
}

// ExpiryReconcilerStats contains reconciler statistics
type ExpiryReconcilerStats struct {
	IsRunning     bool                 `json:"is_running"`
	TotalRuns     int64                `json:"total_runs"`
	TotalExpired  int64                `json:"total_expired"`
	LastSweepTime time.Time            `json:"last_sweep_time"`
	LastSweep     service.SweepSummary `json:"last_sweep"`
}
