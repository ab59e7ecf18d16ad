package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/dto"
	"github.com/Awerito/ulatickets-api/internal/metrics"
	"github.com/Awerito/ulatickets-api/internal/repository"
	"github.com/Awerito/ulatickets-api/pkg/retry"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// SweepSummary reports what one expiry sweep did.
type SweepSummary struct {
	// Reservations is the number of holds this sweep flipped to EXPIRED.
	Reservations int `json:"reservations"`
	// EventsUpdated is the number of events whose stock received restores.
	EventsUpdated int `json:"events_updated"`
}

// ReservationService defines the interface for hold lifecycle logic
type ReservationService interface {
	// CreateReservation places an all-or-nothing hold on event inventory
	CreateReservation(ctx context.Context, req *dto.CreateReservationRequest) (*dto.CreateReservationResponse, error)

	// GetReservation retrieves a reservation, expiring it lazily if its
	// deadline has passed
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)

	// CancelReservation deletes a reservation and returns its held stock
	CancelReservation(ctx context.Context, id string) error

	// SweepExpired expires every overdue PENDING hold and restores the
	// stock it was holding, one ledger write per event
	SweepExpired(ctx context.Context) (*SweepSummary, error)
}

// reservationService implements ReservationService
type reservationService struct {
	eventRepo       repository.EventRepository
	reservationRepo repository.ReservationRepository
	retrier         *retry.Retrier
	logger          *zap.Logger
	holdDuration    time.Duration
	sweepBatchSize  int
	now             func() time.Time
}

// ReservationServiceConfig contains configuration for the reservation service
type ReservationServiceConfig struct {
	HoldDuration   time.Duration
	SweepBatchSize int
	Retry          *retry.Config
}

// NewReservationService creates a new reservation service
func NewReservationService(
	eventRepo repository.EventRepository,
	reservationRepo repository.ReservationRepository,
	logger *zap.Logger,
	cfg *ReservationServiceConfig,
) ReservationService {
	holdDuration := 2 * time.Minute
	sweepBatchSize := 500
	retryCfg := &retry.Config{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
	if cfg != nil {
		if cfg.HoldDuration > 0 {
			holdDuration = cfg.HoldDuration
		}
		if cfg.SweepBatchSize > 0 {
			sweepBatchSize = cfg.SweepBatchSize
		}
		if cfg.Retry != nil {
			retryCfg = cfg.Retry
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reservationService{
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		retrier:         retry.New(retryCfg),
		logger:          logger,
		holdDuration:    holdDuration,
		sweepBatchSize:  sweepBatchSize,
		now:             time.Now,
	}
}

// CreateReservation places an all-or-nothing hold on event inventory
func (s *reservationService) CreateReservation(ctx context.Context, req *dto.CreateReservationRequest) (*dto.CreateReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.create")
	defer span.End()

	if strings.TrimSpace(req.EventID) == "" {
		return nil, domain.ErrInvalidEventID
	}
	items := req.DomainItems()
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", domain.ErrInvalidRequest)
	}
	for _, it := range items {
		if strings.TrimSpace(it.Type) == "" {
			return nil, domain.ErrInvalidTicketType
		}
		if it.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
	}

	span.SetAttributes(attribute.String("event_id", req.EventID))

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	// Prices are fixed at hold time; later catalog edits do not reprice
	// the reservation.
	var totalPrice float64
	for _, it := range items {
		slot := event.TicketByType(it.Type)
		if slot == nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTicketType, it.Type)
		}
		totalPrice += slot.Price * float64(it.Quantity)
	}

	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.eventRepo.ReserveStock(ctx, event.ID, items)
	}); err != nil {
		if metrics.ReservationsFailed != nil {
			metrics.ReservationsFailed.Add(ctx, 1, attribute.String("event_id", event.ID))
		}
		span.RecordError(err)
		return nil, err
	}

	now := s.now()
	reservation := &domain.Reservation{
		ID:         uuid.New().String(),
		EventID:    event.ID,
		Items:      items,
		TotalPrice: totalPrice,
		Status:     domain.ReservationStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.holdDuration),
	}

	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		// The stock was already taken; give it back before failing.
		if _, restoreErr := s.eventRepo.RestoreStock(ctx, event.ID, reservation.QuantityByType()); restoreErr != nil {
			s.logger.Error("failed to restore stock after create failure",
				zap.String("event_id", event.ID),
				zap.Error(restoreErr))
		}
		span.RecordError(err)
		return nil, err
	}

	metrics.RecordReservationCreated(ctx, event.ID)
	span.SetAttributes(attribute.String("reservation_id", reservation.ID))

	return &dto.CreateReservationResponse{
		ReservationID: reservation.ID,
		ExpiresAt:     reservation.ExpiresAt,
		TotalPrice:    reservation.TotalPrice,
		Status:        reservation.Status.String(),
	}, nil
}

// GetReservation retrieves a reservation, expiring it lazily if its deadline
// has passed
func (s *reservationService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.get")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if reservation.IsPending() && reservation.IsExpiredAt(s.now()) {
		won, err := expireAndRestore(ctx, s.reservationRepo, s.eventRepo, reservation)
		if err != nil {
			s.logger.Warn("lazy expiry failed",
				zap.String("reservation_id", id),
				zap.Error(err))
		}
		if won {
			metrics.RecordReservationsExpired(ctx, 1)
			reservation.Status = domain.ReservationStatusExpired
		} else if err == nil {
			// Another writer got there first; report its outcome.
			return s.reservationRepo.GetByID(ctx, id)
		}
	}

	return reservation, nil
}

// CancelReservation deletes a reservation and returns its held stock
func (s *reservationService) CancelReservation(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	status, err := s.reservationRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	// Only a PENDING hold still owns stock. If the sweep already expired
	// it, the restore already happened; if it was confirmed, the tickets
	// were sold.
	if status == domain.ReservationStatusPending {
		if _, err := s.eventRepo.RestoreStock(ctx, reservation.EventID, reservation.QuantityByType()); err != nil {
			s.logger.Error("failed to restore stock on cancel",
				zap.String("reservation_id", id),
				zap.String("event_id", reservation.EventID),
				zap.Error(err))
			return err
		}
		metrics.RecordStockRestored(ctx, ticketCount(reservation.Items))
	}

	if metrics.ReservationsCancelled != nil {
		metrics.ReservationsCancelled.Add(ctx, 1)
	}
	return nil
}

// SweepExpired expires every overdue PENDING hold and restores the stock it
// was holding, one ledger write per event
func (s *reservationService) SweepExpired(ctx context.Context) (*SweepSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.sweep")
	defer span.End()

	now := s.now()
	expired, err := s.reservationRepo.FindExpired(ctx, now, s.sweepBatchSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	summary := &SweepSummary{}
	// restores aggregates per-event quantities for the holds this sweep
	// won. CAS losers were already handled by another writer and must not
	// be restored again.
	restores := make(map[string]map[string]int)

	for _, reservation := range expired {
		won, err := s.reservationRepo.CompareAndSetStatus(ctx, reservation.ID,
			domain.ReservationStatusPending, domain.ReservationStatusExpired)
		if err != nil {
			s.logger.Warn("sweep: status transition failed",
				zap.String("reservation_id", reservation.ID),
				zap.Error(err))
			continue
		}
		if !won {
			continue
		}

		summary.Reservations++
		perType := reservation.QuantityByType()
		if len(perType) == 0 {
			s.logger.Warn("sweep: expired reservation holds no stock",
				zap.String("reservation_id", reservation.ID))
			continue
		}
		agg := restores[reservation.EventID]
		if agg == nil {
			agg = make(map[string]int)
			restores[reservation.EventID] = agg
		}
		for t, q := range perType {
			agg[t] += q
		}
	}

	for eventID, perType := range restores {
		found, err := s.eventRepo.RestoreStock(ctx, eventID, perType)
		if err != nil {
			s.logger.Error("sweep: stock restore failed",
				zap.String("event_id", eventID),
				zap.Error(err))
			continue
		}
		if !found {
			// Event was deleted while holds were open. Nothing to
			// restore into.
			s.logger.Info("sweep: skipping restore for missing event",
				zap.String("event_id", eventID))
			continue
		}
		summary.EventsUpdated++
		total := 0
		for _, q := range perType {
			total += q
		}
		metrics.RecordStockRestored(ctx, total)
	}

	metrics.RecordReservationsExpired(ctx, summary.Reservations)
	span.SetAttributes(
		attribute.Int("reservations", summary.Reservations),
		attribute.Int("events_updated", summary.EventsUpdated),
	)

	if summary.Reservations > 0 {
		s.logger.Info("expiry sweep finished",
			zap.Int("reservations", summary.Reservations),
			zap.Int("events_updated", summary.EventsUpdated))
	}
	return summary, nil
}

// withRetry runs op, retrying transient storage failures with backoff.
// Domain errors terminate immediately.
func (s *reservationService) withRetry(ctx context.Context, op retry.Operation) error {
	result := s.retrier.Do(ctx, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if domain.IsNotFoundError(err) || domain.IsValidationError(err) || domain.IsConflictError(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if result.Err == nil {
		return nil
	}
	if errors.Is(result.Err, retry.ErrMaxRetriesExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStorageContention, result.LastError)
	}
	return result.Err
}

// expireAndRestore flips a PENDING reservation to EXPIRED and, when this
// caller wins the transition, returns the held stock. Exactly one caller can
// win, so stock is restored at most once per reservation.
func expireAndRestore(
	ctx context.Context,
	reservations repository.ReservationRepository,
	events repository.EventRepository,
	reservation *domain.Reservation,
) (bool, error) {
	won, err := reservations.CompareAndSetStatus(ctx, reservation.ID,
		domain.ReservationStatusPending, domain.ReservationStatusExpired)
	if err != nil || !won {
		return false, err
	}
	if _, err := events.RestoreStock(ctx, reservation.EventID, reservation.QuantityByType()); err != nil {
		return true, err
	}
	metrics.RecordStockRestored(ctx, ticketCount(reservation.Items))
	return true, nil
}

func ticketCount(items []domain.ReservationItem) int {
	total := 0
	for _, it := range items {
		if it.Quantity > 0 {
			total += it.Quantity
		}
	}
	return total
}
