package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// activeChannelIndex enforces one active order per channel
const activeChannelIndex = "orders_active_channel_uidx"

const orderColumns = `o.id, o.seller_id, o.buyer_id, o.channel_username, o.channel_title, o.channel_link,
		       o.price_ton::text, o.status, o.escrow_until, o.created_at, o.completed_at`

// OrderRepository implements the order.Repository interface for PostgreSQL.
// Status changes are single guarded UPDATE statements; the boolean result
// reports whether the guard matched.
type OrderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts an active order. A concurrent or existing active listing
// for the channel yields ErrChannelAlreadyListed.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	query := `
		INSERT INTO orders (seller_id, channel_username, channel_title, channel_link, price_ton, status, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		o.SellerID,
		o.ChannelUsername,
		o.ChannelTitle,
		o.ChannelLink,
		o.Price.String(),
		string(o.Status),
		o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err, activeChannelIndex) {
			return order.ErrChannelAlreadyListed{ChannelUsername: o.ChannelUsername}
		}
		r.logger.Error("Failed to create order", "channel_username", o.ChannelUsername, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by id
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.id = $1
	`

	o, err := scanOrder(r.querier.QueryRow(ctx, query, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{OrderID: id}
		}
		r.logger.Error("Failed to get order", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return o, nil
}

// ListActive returns active listings joined with seller profile, newest first
func (r *OrderRepository) ListActive(ctx context.Context, filter order.Filter) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + `, u.username, u.first_name
		FROM orders o
		JOIN users u ON u.id = o.seller_id
		WHERE o.status = 'active' AND ($1::bigint IS NULL OR o.seller_id = $1)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, filter.SellerID, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error("Failed to list active orders", "error", err)
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}
	defer rows.Close()

	return r.collect(rows, true)
}

// ListExpiredEscrow returns escrow orders whose deadline passed before now,
// oldest deadline first
func (r *OrderRepository) ListExpiredEscrow(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.status = 'escrow' AND o.escrow_until < $1
		ORDER BY o.escrow_until ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, now, limit)
	if err != nil {
		r.logger.Error("Failed to list expired escrow orders", "error", err)
		return nil, fmt.Errorf("failed to list expired escrow orders: %w", err)
	}
	defer rows.Close()

	return r.collect(rows, false)
}

// StartEscrow moves active -> escrow for buyerID
func (r *OrderRepository) StartEscrow(ctx context.Context, id, buyerID int64, until time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'escrow', buyer_id = $2, escrow_until = $3
		WHERE id = $1 AND status = 'active'
	`

	return r.transition(ctx, id, order.StatusActive, order.StatusEscrow, query, id, buyerID, until)
}

// Complete moves escrow -> completed
func (r *OrderRepository) Complete(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status = 'escrow'
	`

	return r.transition(ctx, id, order.StatusEscrow, order.StatusCompleted, query, id, completedAt)
}

// Cancel moves active -> cancelled
func (r *OrderRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'active'
	`

	return r.transition(ctx, id, order.StatusActive, order.StatusCancelled, query, id)
}

// ExpireEscrow moves an overdue escrow to target. Relisting as active can
// collide with a newer listing of the same channel, reported as
// ErrChannelAlreadyListed.
func (r *OrderRepository) ExpireEscrow(ctx context.Context, id, buyerID int64, now time.Time, target order.Status) (bool, error) {
	if target != order.StatusActive && target != order.StatusCancelled {
		return false, fmt.Errorf("invalid escrow expiry target %q", target)
	}

	query := `
		UPDATE orders
		SET status = $4, buyer_id = NULL, escrow_until = NULL
		WHERE id = $1 AND status = 'escrow' AND buyer_id = $2 AND escrow_until < $3
	`

	won, err := r.transition(ctx, id, order.StatusEscrow, target, query, id, buyerID, now, string(target))
	if err != nil && isUniqueViolation(err, activeChannelIndex) {
		return false, order.ErrChannelAlreadyListed{}
	}
	return won, err
}

func (r *OrderRepository) transition(ctx context.Context, id int64, from, to order.Status, query string, args ...any) (bool, error) {
	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, activeChannelIndex) {
			return false, err
		}
		r.logger.Error("Failed to transition order",
			"order_id", id,
			"from", string(from),
			"to", string(to),
			"error", err,
		)
		return false, fmt.Errorf("failed to transition order %d from %s to %s: %w", id, from, to, err)
	}

	if result.RowsAffected() == 0 {
		r.logger.Debug("Order transition guard did not match",
			"order_id", id,
			"from", string(from),
			"to", string(to),
		)
		return false, nil
	}

	return true, nil
}

func (r *OrderRepository) collect(rows pgx.Rows, withSeller bool) ([]*order.Order, error) {
	orders := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows, withSeller)
		if err != nil {
			r.logger.Error("Failed to scan order", "error", err)
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over orders", "error", err)
		return nil, fmt.Errorf("error iterating over orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row rowScanner, withSeller bool) (*order.Order, error) {
	var (
		o      order.Order
		price  string
		status string
	)
	dest := []any{
		&o.ID,
		&o.SellerID,
		&o.BuyerID,
		&o.ChannelUsername,
		&o.ChannelTitle,
		&o.ChannelLink,
		&price,
		&status,
		&o.EscrowUntil,
		&o.CreatedAt,
		&o.CompletedAt,
	}
	var seller order.SellerInfo
	if withSeller {
		dest = append(dest, &seller.Username, &seller.FirstName)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order price %q: %w", price, err)
	}
	o.Price = parsed
	o.Status = order.Status(status)
	if withSeller {
		o.Seller = &seller
	}
	return &o, nil
}
