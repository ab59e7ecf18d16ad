package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// PostgresEventRepository implements EventRepository using PostgreSQL.
// The ticket_types table is the inventory ledger; every stock mutation is
// a conditional row update so concurrent holds serialize on the row lock.
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository.
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Create inserts an event with its ticket types.
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.create")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO events (id, name, category, date, location, image)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query,
		event.ID, event.Name, event.Category, event.Date, event.Location, nullString(event.Image),
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create event: %w", err)
	}

	for i, t := range event.Tickets {
		if _, err := tx.Exec(ctx, `
			INSERT INTO ticket_types (event_id, type, price, available, position)
			VALUES ($1, $2, $3, $4, $5)
		`, event.ID, t.Type, t.Price, t.Available, i); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to create ticket type %q: %w", t.Type, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an event with its ticket types in list order.
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	event := &domain.Event{}
	var image *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, category, date, location, image
		FROM events
		WHERE id = $1
	`, id).Scan(&event.ID, &event.Name, &event.Category, &event.Date, &event.Location, &image)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if image != nil {
		event.Image = *image
	}

	event.Tickets, err = r.ticketTypes(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// List retrieves events matching the filter plus the total match count.
func (r *PostgresEventRepository) List(ctx context.Context, filter EventFilter) ([]*domain.Event, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list")
	defer span.End()

	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events "+whereClause, args...).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	orderBy := "created_at"
	switch filter.Sort {
	case "date":
		orderBy = "date ASC"
	case "-date":
		orderBy = "date DESC"
	case "category":
		orderBy = "category ASC"
	case "-category":
		orderBy = "category DESC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, name, category, date, location, image
		FROM events
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event := &domain.Event{}
		var image *string
		if err := rows.Scan(&event.ID, &event.Name, &event.Category, &event.Date, &event.Location, &image); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		if image != nil {
			event.Image = *image
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("error iterating events: %w", err)
	}

	for _, event := range events {
		event.Tickets, err = r.ticketTypes(ctx, event.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, err
		}
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, total, nil
}

// Update applies a partial update; a non-nil ticket list replaces the whole
// ledger for the event.
func (r *PostgresEventRepository) Update(ctx context.Context, id string, update EventUpdate) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	set := make([]string, 0, 5)
	args := []interface{}{id}
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.Date != nil {
		add("date", *update.Date)
	}
	if update.Location != nil {
		add("location", *update.Location)
	}
	if update.Image != nil {
		add("image", nullString(*update.Image))
	}

	if len(set) > 0 {
		query := fmt.Sprintf("UPDATE events SET %s WHERE id = $1", strings.Join(set, ", "))
		result, err := tx.Exec(ctx, query, args...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to update event: %w", err)
		}
		if result.RowsAffected() == 0 {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrEventNotFound
		}
	} else {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check event existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrEventNotFound
		}
	}

	if update.Tickets != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM ticket_types WHERE event_id = $1`, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to clear ticket types: %w", err)
		}
		for i, t := range update.Tickets {
			if _, err := tx.Exec(ctx, `
				INSERT INTO ticket_types (event_id, type, price, available, position)
				VALUES ($1, $2, $3, $4, $5)
			`, id, t.Type, t.Price, t.Available, i); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return fmt.Errorf("failed to replace ticket type %q: %w", t.Type, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit event update: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete removes an event; ticket types cascade.
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrEventNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ReserveStock decrements every requested slot inside one transaction.
// Each decrement is conditional on sufficient availability, so two holds
// racing for the last tickets cannot both pass; the transaction rolls back
// on the first failing slot, leaving no partial decrement behind.
func (r *PostgresEventRepository) ReserveStock(ctx context.Context, eventID string, items []domain.ReservationItem) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.reserve_stock")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("item_count", len(items)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to check event existence: %w", err)
	}
	if !exists {
		span.SetStatus(codes.Error, "event not found")
		return domain.ErrEventNotFound
	}

	// Lock slots in a stable order so concurrent multi-item holds on the
	// same event cannot deadlock.
	sorted := make([]domain.ReservationItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Type < sorted[j].Type })

	for _, it := range sorted {
		result, err := tx.Exec(ctx, `
			UPDATE ticket_types
			SET available = available - $3
			WHERE event_id = $1 AND type = $2 AND available >= $3
		`, eventID, it.Type, it.Quantity)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to decrement stock for %q: %w", it.Type, err)
		}
		if result.RowsAffected() == 0 {
			var known bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM ticket_types WHERE event_id = $1 AND type = $2)`,
				eventID, it.Type,
			).Scan(&known); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return fmt.Errorf("failed to check ticket type %q: %w", it.Type, err)
			}
			if !known {
				span.SetStatus(codes.Error, "unknown ticket type")
				return fmt.Errorf("%w: %q", domain.ErrUnknownTicketType, it.Type)
			}
			span.SetStatus(codes.Error, "insufficient stock")
			return fmt.Errorf("%w: %q", domain.ErrInsufficientStock, it.Type)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit stock reservation: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RestoreStock adds aggregated quantities back to the event's slots. A
// missing event is reported via the boolean so sweeps can skip it without
// failing; slots for renamed or removed types are skipped silently.
func (r *PostgresEventRepository) RestoreStock(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.restore_stock")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("type_count", len(perType)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check event existence: %w", err)
	}
	if !exists {
		span.SetStatus(codes.Ok, "event missing")
		return false, nil
	}

	types := make([]string, 0, len(perType))
	for t, q := range perType {
		if q > 0 {
			types = append(types, t)
		}
	}
	sort.Strings(types)

	for _, t := range types {
		if _, err := tx.Exec(ctx, `
			UPDATE ticket_types
			SET available = available + $3
			WHERE event_id = $1 AND type = $2
		`, eventID, t, perType[t]); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return false, fmt.Errorf("failed to restore stock for %q: %w", t, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to commit stock restore: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return true, nil
}

func (r *PostgresEventRepository) ticketTypes(ctx context.Context, eventID string) ([]domain.TicketType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT type, price, available
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY position
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types: %w", err)
	}
	defer rows.Close()

	var tickets []domain.TicketType
	for rows.Next() {
		var t domain.TicketType
		if err := rows.Scan(&t.Type, &t.Price, &t.Available); err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket types: %w", err)
	}
	return tickets, nil
}

// Helper function to convert empty string to nil pointer.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresEventRepository implements EventRepository
var _ EventRepository = (*PostgresEventRepository)(nil)
