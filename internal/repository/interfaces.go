package repository

import (
	"context"
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
)

// EventFilter restricts and paginates event listings.
type EventFilter struct {
	Query    string
	Category string
	// Sort is "date", "-date", "category" or "-category"; empty means
	// insertion order.
	Sort   string
	Limit  int
	Offset int
}

// EventUpdate carries a partial event update. Nil fields are left
// unchanged; a non-nil Tickets replaces the whole ticket list.
type EventUpdate struct {
	Name     *string
	Category *string
	Date     *time.Time
	Location *string
	Image    *string
	Tickets  []domain.TicketType
}

// EventRepository is the catalog store plus the inventory ledger. Stock
// mutations must be atomic per ticket-type slot: two concurrent holds must
// never both pass a check that only one of them has stock for.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, filter EventFilter) ([]*domain.Event, int, error)
	Update(ctx context.Context, id string, update EventUpdate) error
	Delete(ctx context.Context, id string) error

	// ReserveStock decrements every requested slot by its quantity in one
	// transaction. Either all decrements apply or none do; a decrement only
	// applies while the slot still has at least the requested quantity.
	// Returns ErrEventNotFound, ErrUnknownTicketType or ErrInsufficientStock.
	ReserveStock(ctx context.Context, eventID string, items []domain.ReservationItem) error

	// RestoreStock adds the aggregated per-type quantities back to the
	// event's slots in one transaction. A missing event is reported via the
	// boolean, not an error; unknown types are skipped.
	RestoreStock(ctx context.Context, eventID string, perType map[string]int) (bool, error)
}

// ReservationRepository persists holds and their status transitions.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// CompareAndSetStatus transitions the reservation from expected to next
	// and reports whether the write applied. A false return with nil error
	// means another writer won the transition first.
	CompareAndSetStatus(ctx context.Context, id string, expected, next domain.ReservationStatus) (bool, error)

	// FindExpired returns PENDING reservations whose deadline passed before
	// now, up to limit.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error)

	// Delete removes the reservation and returns its status at deletion
	// time, or ErrReservationNotFound.
	Delete(ctx context.Context, id string) (domain.ReservationStatus, error)
}

// PurchaseRepository persists confirmed purchases. Purchases are immutable.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *domain.Purchase) error
	GetByID(ctx context.Context, id string) (*domain.Purchase, error)
}
