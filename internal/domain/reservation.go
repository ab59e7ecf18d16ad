package domain

import "time"

// ReservationStatus represents the lifecycle state of a reservation.
// PENDING is the only non-terminal state; CONFIRMED and EXPIRED are final.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
)

// IsValid checks if the status is a known ReservationStatus.
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of ReservationStatus.
func (s ReservationStatus) String() string {
	return string(s)
}

// ReservationItem is one requested (type, quantity) line of a reservation.
type ReservationItem struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

// Reservation is a temporary hold on event inventory. Stock is decremented
// when the reservation is created and restored when it expires; a checkout
// converts the hold into a purchase without touching the ledger again.
type Reservation struct {
	ID         string            `json:"id"`
	EventID    string            `json:"event_id"`
	Items      []ReservationItem `json:"items"`
	TotalPrice float64           `json:"total_price"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// IsExpiredAt reports whether the hold deadline has passed at t.
// ExpiresAt is fixed at creation and never recomputed.
func (r *Reservation) IsExpiredAt(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// IsPending reports whether the reservation is still holding inventory.
func (r *Reservation) IsPending() bool {
	return r.Status == ReservationStatusPending
}

// CanCheckout reports whether the reservation may be converted to a
// purchase at t: it must be PENDING and its deadline must not have passed,
// even if no sweep has expired it yet.
func (r *Reservation) CanCheckout(t time.Time) bool {
	return r.IsPending() && !r.IsExpiredAt(t)
}

// QuantityByType aggregates requested quantities per ticket type.
func (r *Reservation) QuantityByType() map[string]int {
	out := make(map[string]int, len(r.Items))
	for _, it := range r.Items {
		if it.Type == "" || it.Quantity <= 0 {
			continue
		}
		out[it.Type] += it.Quantity
	}
	return out
}
