package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// PostgresReservationRepository implements ReservationRepository using
// PostgreSQL. Status transitions are conditional updates on the prior
// status, so checkout and the expiry sweep can never both win a record.
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository.
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

// Create inserts a reservation with its items in request order.
func (r *PostgresReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", reservation.ID),
		attribute.String("event_id", reservation.EventID),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO reservations (id, event_id, total_price, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, reservation.ID, reservation.EventID, reservation.TotalPrice,
		reservation.Status.String(), reservation.CreatedAt, reservation.ExpiresAt,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	for i, it := range reservation.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO reservation_items (reservation_id, type, quantity, position)
			VALUES ($1, $2, $3, $4)
		`, reservation.ID, it.Type, it.Quantity, i); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to create reservation item %q: %w", it.Type, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a reservation with its items.
func (r *PostgresReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	reservation := &domain.Reservation{}
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, total_price, status, created_at, expires_at
		FROM reservations
		WHERE id = $1
	`, id).Scan(
		&reservation.ID,
		&reservation.EventID,
		&reservation.TotalPrice,
		&status,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrReservationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	reservation.Status = domain.ReservationStatus(status)

	reservation.Items, err = r.items(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return reservation, nil
}

// CompareAndSetStatus transitions the reservation only if it still holds
// the expected status.
func (r *PostgresReservationRepository) CompareAndSetStatus(ctx context.Context, id string, expected, next domain.ReservationStatus) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.cas_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", id),
		attribute.String("expected", expected.String()),
		attribute.String("next", next.String()),
	)

	result, err := r.pool.Exec(ctx, `
		UPDATE reservations
		SET status = $3
		WHERE id = $1 AND status = $2
	`, id, expected.String(), next.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to update reservation status: %w", err)
	}

	applied := result.RowsAffected() > 0
	span.SetAttributes(attribute.Bool("applied", applied))
	span.SetStatus(codes.Ok, "")
	return applied, nil
}

// FindExpired returns PENDING reservations whose deadline passed before now.
func (r *PostgresReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.find_expired")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, total_price, status, created_at, expires_at
		FROM reservations
		WHERE status = 'PENDING' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to find expired reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		reservation := &domain.Reservation{}
		var status string
		if err := rows.Scan(
			&reservation.ID,
			&reservation.EventID,
			&reservation.TotalPrice,
			&status,
			&reservation.CreatedAt,
			&reservation.ExpiresAt,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservation.Status = domain.ReservationStatus(status)
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	for _, reservation := range reservations {
		reservation.Items, err = r.items(ctx, reservation.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, nil
}

// Delete removes a reservation and reports its status at deletion time.
func (r *PostgresReservationRepository) Delete(ctx context.Context, id string) (domain.ReservationStatus, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.delete")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	var status string
	err := r.pool.QueryRow(ctx, `
		DELETE FROM reservations
		WHERE id = $1
		RETURNING status
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return "", domain.ErrReservationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to delete reservation: %w", err)
	}

	span.SetAttributes(attribute.String("status", status))
	span.SetStatus(codes.Ok, "")
	return domain.ReservationStatus(status), nil
}

func (r *PostgresReservationRepository) items(ctx context.Context, reservationID string) ([]domain.ReservationItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT type, quantity
		FROM reservation_items
		WHERE reservation_id = $1
		ORDER BY position
	`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReservationItem
	for rows.Next() {
		var it domain.ReservationItem
		if err := rows.Scan(&it.Type, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan reservation item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservation items: %w", err)
	}
	return items, nil
}

// Ensure PostgresReservationRepository implements ReservationRepository
var _ ReservationRepository = (*PostgresReservationRepository)(nil)
