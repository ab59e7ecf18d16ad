package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// PostgresPurchaseRepository implements PurchaseRepository using PostgreSQL.
type PostgresPurchaseRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPurchaseRepository creates a new PostgresPurchaseRepository.
func NewPostgresPurchaseRepository(pool *pgxpool.Pool) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{pool: pool}
}

// Create inserts a purchase with its issued tickets in issue order.
func (r *PostgresPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.purchase.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("purchase_id", purchase.ID),
		attribute.String("reservation_id", purchase.ReservationID),
		attribute.Int("ticket_count", len(purchase.Tickets)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO purchases (id, reservation_id, event_id, buyer_name, buyer_email, total_price, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, purchase.ID, purchase.ReservationID, purchase.EventID,
		purchase.Buyer.Name, purchase.Buyer.Email, purchase.TotalPrice, purchase.ConfirmedAt,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	for i, t := range purchase.Tickets {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_tickets (purchase_id, code, type, position)
			VALUES ($1, $2, $3, $4)
		`, purchase.ID, t.Code, t.Type, i); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to create ticket %q: %w", t.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit purchase: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a purchase with its tickets in issue order.
func (r *PostgresPurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.purchase.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("purchase_id", id))

	purchase := &domain.Purchase{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, reservation_id, event_id, buyer_name, buyer_email, total_price, confirmed_at
		FROM purchases
		WHERE id = $1
	`, id).Scan(
		&purchase.ID,
		&purchase.ReservationID,
		&purchase.EventID,
		&purchase.Buyer.Name,
		&purchase.Buyer.Email,
		&purchase.TotalPrice,
		&purchase.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrPurchaseNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT code, type
		FROM purchase_tickets
		WHERE purchase_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.Code, &t.Type); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		purchase.Tickets = append(purchase.Tickets, t)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return purchase, nil
}

// Ensure PostgresPurchaseRepository implements PurchaseRepository
var _ PurchaseRepository = (*PostgresPurchaseRepository)(nil)
