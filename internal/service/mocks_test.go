package service

import (
	"context"
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/repository"
	"github.com/Awerito/ulatickets-api/pkg/retry"
)

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	CreateFunc       func(ctx context.Context, event *domain.Event) error
	GetByIDFunc      func(ctx context.Context, id string) (*domain.Event, error)
	ListFunc         func(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, int, error)
	UpdateFunc       func(ctx context.Context, id string, update repository.EventUpdate) error
	DeleteFunc       func(ctx context.Context, id string) error
	ReserveStockFunc func(ctx context.Context, eventID string, items []domain.ReservationItem) error
	RestoreStockFunc func(ctx context.Context, eventID string, perType map[string]int) (bool, error)
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	return nil
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventRepository) List(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*domain.Event{}, 0, nil
}

func (m *MockEventRepository) Update(ctx context.Context, id string, update repository.EventUpdate) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, update)
	}
	return nil
}

func (m *MockEventRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockEventRepository) ReserveStock(ctx context.Context, eventID string, items []domain.ReservationItem) error {
	if m.ReserveStockFunc != nil {
		return m.ReserveStockFunc(ctx, eventID, items)
	}
	return nil
}

func (m *MockEventRepository) RestoreStock(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
	if m.RestoreStockFunc != nil {
		return m.RestoreStockFunc(ctx, eventID, perType)
	}
	return true, nil
}

// MockReservationRepository is a mock implementation of ReservationRepository
type MockReservationRepository struct {
	CreateFunc              func(ctx context.Context, reservation *domain.Reservation) error
	GetByIDFunc             func(ctx context.Context, id string) (*domain.Reservation, error)
	CompareAndSetStatusFunc func(ctx context.Context, id string, expected, next domain.ReservationStatus) (bool, error)
	FindExpiredFunc         func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error)
	DeleteFunc              func(ctx context.Context, id string) (domain.ReservationStatus, error)
}

func (m *MockReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, reservation)
	}
	return nil
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrReservationNotFound
}

func (m *MockReservationRepository) CompareAndSetStatus(ctx context.Context, id string, expected, next domain.ReservationStatus) (bool, error) {
	if m.CompareAndSetStatusFunc != nil {
		return m.CompareAndSetStatusFunc(ctx, id, expected, next)
	}
	return true, nil
}

func (m *MockReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	if m.FindExpiredFunc != nil {
		return m.FindExpiredFunc(ctx, now, limit)
	}
	return []*domain.Reservation{}, nil
}

func (m *MockReservationRepository) Delete(ctx context.Context, id string) (domain.ReservationStatus, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return "", domain.ErrReservationNotFound
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository
type MockPurchaseRepository struct {
	CreateFunc  func(ctx context.Context, purchase *domain.Purchase) error
	GetByIDFunc func(ctx context.Context, id string) (*domain.Purchase, error)
}

func (m *MockPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, purchase)
	}
	return nil
}

func (m *MockPurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrPurchaseNotFound
}

// testEvent returns an event with two ticket types for tests
func testEvent() *domain.Event {
	return &domain.Event{
		ID:       "event-001",
		Name:     "Test Concert",
		Category: "music",
		Date:     time.Now().AddDate(0, 1, 0),
		Location: "Test Arena",
		Tickets: []domain.TicketType{
			{Type: "general", Price: 100, Available: 50},
			{Type: "vip", Price: 250, Available: 10},
		},
	}
}

// fastRetryConfig keeps retry-path tests quick
func fastRetryConfig() *ReservationServiceConfig {
	return &ReservationServiceConfig{
		Retry: &retry.Config{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2.0,
			JitterFactor:    0,
		},
	}
}
