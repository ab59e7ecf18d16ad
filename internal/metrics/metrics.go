package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

var (
	// Reservation counters
	ReservationsCreated   *telemetry.Counter
	ReservationsExpired   *telemetry.Counter
	ReservationsCancelled *telemetry.Counter
	ReservationsFailed    *telemetry.Counter

	// Checkout counters
	CheckoutsConfirmed *telemetry.Counter
	CheckoutsRejected  *telemetry.Counter

	// Inventory counters
	StockReserved *telemetry.Counter
	StockRestored *telemetry.Counter

	// Sweep counters
	SweepRuns *telemetry.Counter

	// Histograms
	SweepDuration   *telemetry.Histogram
	RequestDuration *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all reservation metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	ReservationsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservations_created_total",
		Description: "Total number of ticket holds created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservations_expired_total",
		Description: "Total number of holds flipped to expired",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservations_cancelled_total",
		Description: "Total number of holds cancelled by the client",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservations_failed_total",
		Description: "Total number of rejected hold attempts",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CheckoutsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "checkouts_confirmed_total",
		Description: "Total number of holds converted to purchases",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CheckoutsRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "checkouts_rejected_total",
		Description: "Total number of checkout attempts on dead holds",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	StockReserved, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "stock_reserved_total",
		Description: "Total tickets moved from available into holds",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	StockRestored, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "stock_restored_total",
		Description: "Total tickets returned to availability",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SweepRuns, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "expiry_sweep_runs_total",
		Description: "Total number of expiry sweep executions",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SweepDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "expiry_sweep_duration_seconds",
		Description: "Duration of a full expiry sweep",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	RequestDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "http_request_duration_seconds",
		Description: "HTTP request duration",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordReservationCreated increments the created counter with the event label
func RecordReservationCreated(ctx context.Context, eventID string) {
	if ReservationsCreated != nil {
		ReservationsCreated.Add(ctx, 1, attribute.String("event_id", eventID))
	}
}

// RecordReservationsExpired increments the expired counter by n
func RecordReservationsExpired(ctx context.Context, n int) {
	if ReservationsExpired != nil && n > 0 {
		ReservationsExpired.Add(ctx, int64(n))
	}
}

// RecordCheckoutConfirmed increments the confirmed counter with the event label
func RecordCheckoutConfirmed(ctx context.Context, eventID string) {
	if CheckoutsConfirmed != nil {
		CheckoutsConfirmed.Add(ctx, 1, attribute.String("event_id", eventID))
	}
}

// RecordStockRestored increments the restored counter by the ticket count
func RecordStockRestored(ctx context.Context, n int) {
	if StockRestored != nil && n > 0 {
		StockRestored.Add(ctx, int64(n))
	}
}
