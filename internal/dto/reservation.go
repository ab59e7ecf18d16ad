package dto

import (
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
)

// ReservationItemInput is one requested ticket line.
type ReservationItemInput struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CreateReservationRequest is the body of POST /reservations.
type CreateReservationRequest struct {
	EventID string                 `json:"event_id" binding:"required"`
	Items   []ReservationItemInput `json:"items" binding:"required,min=1,dive"`
}

// DomainItems converts request items to domain reservation items.
func (r *CreateReservationRequest) DomainItems() []domain.ReservationItem {
	items := make([]domain.ReservationItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.ReservationItem{Type: it.Type, Quantity: it.Quantity}
	}
	return items
}

// CreateReservationResponse is the body returned by POST /reservations.
type CreateReservationResponse struct {
	ReservationID string    `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	TotalPrice    float64   `json:"total_price"`
	Status        string    `json:"status"`
}

// ReservationResponse is the body returned by GET /reservations/:id.
type ReservationResponse struct {
	ID         string                   `json:"id"`
	EventID    string                   `json:"event_id"`
	Items      []domain.ReservationItem `json:"items"`
	TotalPrice float64                  `json:"total_price"`
	Status     string                   `json:"status"`
	CreatedAt  time.Time                `json:"created_at"`
	ExpiresAt  time.Time                `json:"expires_at"`
}

// ReservationFromDomain converts a domain reservation to its response form.
func ReservationFromDomain(r *domain.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:         r.ID,
		EventID:    r.EventID,
		Items:      r.Items,
		TotalPrice: r.TotalPrice,
		Status:     r.Status.String(),
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
	}
}
