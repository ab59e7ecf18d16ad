package dto

import (
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
)

// BuyerInput is the buyer block of a checkout request.
type BuyerInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	ReservationID string     `json:"reservation_id" binding:"required"`
	Buyer         BuyerInput `json:"buyer" binding:"required"`
}

// PurchaseResponse is the body returned for a purchase.
type PurchaseResponse struct {
	ID            string           `json:"id"`
	ReservationID string           `json:"reservation_id"`
	EventID       string           `json:"event_id"`
	Tickets       []domain.Ticket  `json:"tickets"`
	Buyer         domain.BuyerInfo `json:"buyer"`
	TotalPrice    float64          `json:"total_price"`
	ConfirmedAt   time.Time        `json:"confirmed_at"`
}

// PurchaseFromDomain converts a domain purchase to its response form.
func PurchaseFromDomain(p *domain.Purchase) *PurchaseResponse {
	return &PurchaseResponse{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		EventID:       p.EventID,
		Tickets:       p.Tickets,
		Buyer:         p.Buyer,
		TotalPrice:    p.TotalPrice,
		ConfirmedAt:   p.ConfirmedAt,
	}
}
