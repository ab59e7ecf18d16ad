package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/dto"
	"github.com/Awerito/ulatickets-api/internal/repository"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// EventService defines the interface for event catalog logic
type EventService interface {
	// CreateEvent creates a new event with its ticket inventory
	CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error)

	// GetEvent retrieves an event by ID
	GetEvent(ctx context.Context, id string) (*domain.Event, error)

	// ListEvents lists events with filtering, sorting and pagination
	ListEvents(ctx context.Context, query *dto.ListEventsQuery) (*dto.PaginatedEventsResponse, error)

	// UpdateEvent applies a partial update to an event
	UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) error

	// DeleteEvent removes an event
	DeleteEvent(ctx context.Context, id string) error
}

// eventService implements EventService
type eventService struct {
	eventRepo repository.EventRepository
}

// NewEventService creates a new event service
func NewEventService(eventRepo repository.EventRepository) EventService {
	return &eventService{eventRepo: eventRepo}
}

// CreateEvent creates a new event with its ticket inventory
func (s *eventService) CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	event := req.ToDomain()
	if err := event.Validate(); err != nil {
		return nil, err
	}
	event.ID = uuid.New().String()

	span.SetAttributes(attribute.String("event_id", event.ID))

	if err := s.eventRepo.Create(ctx, event); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return event, nil
}

// GetEvent retrieves an event by ID
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return nil, domain.ErrInvalidEventID
	}
	return s.eventRepo.GetByID(ctx, id)
}

// ListEvents lists events with filtering, sorting and pagination
func (s *eventService) ListEvents(ctx context.Context, query *dto.ListEventsQuery) (*dto.PaginatedEventsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.list")
	defer span.End()

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	filter := repository.EventFilter{
		Query:    query.Q,
		Category: query.Category,
		Sort:     query.Sort,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if events == nil {
		events = []*domain.Event{}
	}

	return &dto.PaginatedEventsResponse{
		Data:  events,
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

// UpdateEvent applies a partial update to an event
func (s *eventService) UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return domain.ErrInvalidEventID
	}

	update := repository.EventUpdate{
		Name:     req.Name,
		Category: req.Category,
		Date:     req.Date,
		Location: req.Location,
		Image:    req.Image,
	}
	if req.Tickets != nil {
		tickets := make([]domain.TicketType, len(req.Tickets))
		for i, t := range req.Tickets {
			tickets[i] = domain.TicketType{Type: t.Type, Price: t.Price, Available: t.Available}
		}
		// Replacement lists must satisfy the same invariants as creation
		check := domain.Event{Name: "x", Tickets: tickets}
		if err := check.Validate(); err != nil {
			return err
		}
		update.Tickets = tickets
	}
	if req.Name != nil {
		check := domain.Event{Name: *req.Name}
		if err := check.Validate(); err != nil {
			return err
		}
	}

	if err := s.eventRepo.Update(ctx, id, update); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// DeleteEvent removes an event
func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return domain.ErrInvalidEventID
	}
	return s.eventRepo.Delete(ctx, id)
}
