package domain

import (
	"fmt"
	"time"
)

// Ticket is a single issued ticket. Codes are unique within a purchase.
type Ticket struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// BuyerInfo identifies who completed the checkout.
type BuyerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Purchase is a confirmed reservation with issued tickets. Immutable once
// created.
type Purchase struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	Tickets       []Ticket  `json:"tickets"`
	Buyer         BuyerInfo `json:"buyer"`
	TotalPrice    float64   `json:"total_price"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// IssueTickets expands reservation items into individual tickets in item
// order, with sequential per-purchase codes T-<last3-of-event-id>-<seq>
// starting at 0001.
func IssueTickets(eventID string, items []ReservationItem) []Ticket {
	suffix := eventID
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}

	var tickets []Ticket
	seq := 1
	for _, it := range items {
		for i := 0; i < it.Quantity; i++ {
			tickets = append(tickets, Ticket{
				Code: fmt.Sprintf("T-%s-%04d", suffix, seq),
				Type: it.Type,
			})
			seq++
		}
	}
	return tickets
}
