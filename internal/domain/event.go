package domain

import (
	"strings"
	"time"
)

// TicketType is one sellable ticket category of an event. Available counts
// are the authoritative inventory ledger for that (event, type) slot.
type TicketType struct {
	Type      string  `json:"type"`
	Price     float64 `json:"price"`
	Available int     `json:"available"`
}

// Event represents a ticketed event with its per-type inventory.
type Event struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Category string       `json:"category"`
	Date     time.Time    `json:"date"`
	Location string       `json:"location"`
	Image    string       `json:"image,omitempty"`
	Tickets  []TicketType `json:"tickets"`
}

// TicketByType returns the slot for the given ticket type, or nil.
func (e *Event) TicketByType(ticketType string) *TicketType {
	for i := range e.Tickets {
		if e.Tickets[i].Type == ticketType {
			return &e.Tickets[i]
		}
	}
	return nil
}

// Validate validates event fields and the per-event ticket invariants
// (unique type names, non-negative price and availability).
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrInvalidEventName
	}
	seen := make(map[string]struct{}, len(e.Tickets))
	for _, t := range e.Tickets {
		if strings.TrimSpace(t.Type) == "" {
			return ErrInvalidTicketType
		}
		if _, dup := seen[t.Type]; dup {
			return ErrDuplicateTicketType
		}
		seen[t.Type] = struct{}{}
		if t.Price < 0 {
			return ErrInvalidTicketPrice
		}
		if t.Available < 0 {
			return ErrInvalidTicketCount
		}
	}
	return nil
}
