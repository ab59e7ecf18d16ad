package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/dto"
	"github.com/Awerito/ulatickets-api/internal/metrics"
	"github.com/Awerito/ulatickets-api/internal/repository"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// CheckoutService defines the interface for converting holds into purchases
type CheckoutService interface {
	// Checkout converts a live PENDING reservation into a purchase.
	// At most one checkout can succeed per reservation.
	Checkout(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error)

	// GetPurchase retrieves a purchase by ID
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
}

// checkoutService implements CheckoutService
type checkoutService struct {
	eventRepo       repository.EventRepository
	reservationRepo repository.ReservationRepository
	purchaseRepo    repository.PurchaseRepository
	logger          *zap.Logger
	now             func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	eventRepo repository.EventRepository,
	reservationRepo repository.ReservationRepository,
	purchaseRepo repository.PurchaseRepository,
	logger *zap.Logger,
) CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &checkoutService{
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		purchaseRepo:    purchaseRepo,
		logger:          logger,
		now:             time.Now,
	}
}

// Checkout converts a live PENDING reservation into a purchase
func (s *checkoutService) Checkout(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.checkout")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", req.ReservationID))

	if err := validateBuyer(req.Buyer); err != nil {
		return nil, err
	}

	reservation, err := s.reservationRepo.GetByID(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if !reservation.IsPending() {
		if metrics.CheckoutsRejected != nil {
			metrics.CheckoutsRejected.Add(ctx, 1, attribute.String("reason", "not_pending"))
		}
		return nil, domain.ErrReservationNotActive
	}

	// The deadline is checked here, not just at sweep time. A hold whose
	// deadline passed is dead for checkout even if no sweep has flipped
	// it yet, so expire it now and return its stock.
	if reservation.IsExpiredAt(now) {
		if _, err := expireAndRestore(ctx, s.reservationRepo, s.eventRepo, reservation); err != nil {
			s.logger.Warn("checkout: lazy expiry failed",
				zap.String("reservation_id", reservation.ID),
				zap.Error(err))
		}
		if metrics.CheckoutsRejected != nil {
			metrics.CheckoutsRejected.Add(ctx, 1, attribute.String("reason", "expired"))
		}
		return nil, domain.ErrReservationNotActive
	}

	won, err := s.reservationRepo.CompareAndSetStatus(ctx, reservation.ID,
		domain.ReservationStatusPending, domain.ReservationStatusConfirmed)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !won {
		// A concurrent checkout or the sweep claimed the hold first.
		if metrics.CheckoutsRejected != nil {
			metrics.CheckoutsRejected.Add(ctx, 1, attribute.String("reason", "lost_race"))
		}
		return nil, domain.ErrReservationNotActive
	}

	purchase := &domain.Purchase{
		ID:            uuid.New().String(),
		ReservationID: reservation.ID,
		EventID:       reservation.EventID,
		Tickets:       domain.IssueTickets(reservation.EventID, reservation.Items),
		Buyer:         domain.BuyerInfo{Name: req.Buyer.Name, Email: req.Buyer.Email},
		TotalPrice:    reservation.TotalPrice,
		ConfirmedAt:   now,
	}

	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		// Put the hold back so the buyer can try again; the stock is
		// still theirs until the deadline.
		if _, revertErr := s.reservationRepo.CompareAndSetStatus(ctx, reservation.ID,
			domain.ReservationStatusConfirmed, domain.ReservationStatusPending); revertErr != nil {
			s.logger.Error("checkout: failed to revert confirmation",
				zap.String("reservation_id", reservation.ID),
				zap.Error(revertErr))
		}
		span.RecordError(err)
		return nil, err
	}

	metrics.RecordCheckoutConfirmed(ctx, reservation.EventID)
	span.SetAttributes(attribute.String("purchase_id", purchase.ID))

	return dto.PurchaseFromDomain(purchase), nil
}

// GetPurchase retrieves a purchase by ID
func (s *checkoutService) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.get_purchase")
	defer span.End()

	span.SetAttributes(attribute.String("purchase_id", id))

	return s.purchaseRepo.GetByID(ctx, id)
}

func validateBuyer(buyer dto.BuyerInput) error {
	if strings.TrimSpace(buyer.Name) == "" {
		return domain.ErrInvalidBuyer
	}
	if _, err := mail.ParseAddress(buyer.Email); err != nil {
		return domain.ErrInvalidBuyer
	}
	return nil
}
