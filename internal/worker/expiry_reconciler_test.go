package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/dto"
	"github.com/Awerito/ulatickets-api/internal/service"
)

// stubReservationService only implements SweepExpired meaningfully; the
// reconciler never calls the other methods.
type stubReservationService struct {
	sweepFunc  func(ctx context.Context) (*service.SweepSummary, error)
	sweepCalls int64
}

func (s *stubReservationService) CreateReservation(ctx context.Context, req *dto.CreateReservationRequest) (*dto.CreateReservationResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReservationService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReservationService) CancelReservation(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func (s *stubReservationService) SweepExpired(ctx context.Context) (*service.SweepSummary, error) {
	atomic.AddInt64(&s.sweepCalls, 1)
	if s.sweepFunc != nil {
		return s.sweepFunc(ctx)
	}
	return &service.SweepSummary{}, nil
}

func (s *stubReservationService) calls() int64 {
	return atomic.LoadInt64(&s.sweepCalls)
}

func TestExpiryReconciler_StartStop(t *testing.T) {
	stub := &stubReservationService{}
	reconciler := NewExpiryReconciler(stub, &ExpiryReconcilerConfig{SweepInterval: time.Hour}, nil)

	require.NoError(t, reconciler.Start(context.Background()))

	// Starting twice is an error
	assert.Error(t, reconciler.Start(context.Background()))

	// The loop sweeps once immediately on start
	assert.Eventually(t, func() bool {
		return stub.calls() >= 1
	}, 2*time.Second, 10*time.Millisecond, "no sweep ran after Start()")

	reconciler.Stop()
	assert.False(t, reconciler.Stats().IsRunning)

	// Stop is idempotent
	reconciler.Stop()
}

func TestExpiryReconciler_SweepUpdatesStats(t *testing.T) {
	stub := &stubReservationService{
		sweepFunc: func(ctx context.Context) (*service.SweepSummary, error) {
			return &service.SweepSummary{Reservations: 3, EventsUpdated: 2}, nil
		},
	}
	reconciler := NewExpiryReconciler(stub, nil, nil)

	reconciler.Sweep(context.Background())
	reconciler.Sweep(context.Background())

	stats := reconciler.Stats()
	assert.Equal(t, int64(2), stats.TotalRuns)
	assert.Equal(t, int64(6), stats.TotalExpired)
	assert.Equal(t, 3, stats.LastSweep.Reservations)
	assert.Equal(t, 2, stats.LastSweep.EventsUpdated)
	assert.False(t, stats.LastSweepTime.IsZero())
}

func TestExpiryReconciler_SweepFailureLeavesStats(t *testing.T) {
	stub := &stubReservationService{
		sweepFunc: func(ctx context.Context) (*service.SweepSummary, error) {
			return nil, errors.New("db down")
		},
	}
	reconciler := NewExpiryReconciler(stub, nil, nil)

	reconciler.Sweep(context.Background())

	assert.Equal(t, int64(0), reconciler.Stats().TotalRuns, "failed sweeps must not count as runs")
}

func TestExpiryReconciler_SweepsDoNotOverlap(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	stub := &stubReservationService{
		sweepFunc: func(ctx context.Context) (*service.SweepSummary, error) {
			entered <- struct{}{}
			<-release
			return &service.SweepSummary{}, nil
		},
	}
	reconciler := NewExpiryReconciler(stub, nil, nil)

	done := make(chan struct{})
	go func() {
		reconciler.Sweep(context.Background())
		close(done)
	}()
	<-entered

	// A second sweep while the first is in flight returns without sweeping
	reconciler.Sweep(context.Background())
	assert.Equal(t, int64(1), stub.calls())

	close(release)
	<-done
}
