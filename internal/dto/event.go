package dto

import (
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
)

// TicketTypeInput is one ticket category of an event payload.
type TicketTypeInput struct {
	Type      string  `json:"type" binding:"required"`
	Price     float64 `json:"price" binding:"min=0"`
	Available int     `json:"available" binding:"min=0"`
}

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	Name     string            `json:"name" binding:"required"`
	Category string            `json:"category" binding:"required"`
	Date     time.Time         `json:"date" binding:"required"`
	Location string            `json:"location" binding:"required"`
	Image    string            `json:"image"`
	Tickets  []TicketTypeInput `json:"tickets" binding:"dive"`
}

// ToDomain converts the request to a domain event without an ID.
func (r *CreateEventRequest) ToDomain() *domain.Event {
	tickets := make([]domain.TicketType, len(r.Tickets))
	for i, t := range r.Tickets {
		tickets[i] = domain.TicketType{Type: t.Type, Price: t.Price, Available: t.Available}
	}
	return &domain.Event{
		Name:     r.Name,
		Category: r.Category,
		Date:     r.Date,
		Location: r.Location,
		Image:    r.Image,
		Tickets:  tickets,
	}
}

// UpdateEventRequest is the body of PATCH /events/:id. Nil fields are left
// unchanged; a non-nil Tickets replaces the whole ticket list.
type UpdateEventRequest struct {
	Name     *string           `json:"name"`
	Category *string           `json:"category"`
	Date     *time.Time        `json:"date"`
	Location *string           `json:"location"`
	Image    *string           `json:"image"`
	Tickets  []TicketTypeInput `json:"tickets"`
}

// PatchResponse reports whether a PATCH matched a record.
type PatchResponse struct {
	Updated bool `json:"updated"`
}

// ListEventsQuery holds the query parameters of GET /events.
type ListEventsQuery struct {
	Q        string `form:"q"`
	Category string `form:"category"`
	Sort     string `form:"sort" binding:"omitempty,oneof=date -date category -category"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
	Page     int    `form:"page,default=1" binding:"min=1"`
}

// PaginatedEventsResponse is the body returned by GET /events.
type PaginatedEventsResponse struct {
	Data  []*domain.Event `json:"data"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}
