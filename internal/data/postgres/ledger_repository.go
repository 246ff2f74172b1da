package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements the append-only ledger.Repository for PostgreSQL.
// It issues no UPDATE or DELETE statements.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append inserts one immutable entry and assigns its id
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger (user_id, order_id, amount, type, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		entry.UserID,
		entry.OrderID,
		entry.Amount.String(),
		string(entry.Kind),
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		r.logger.Error("Failed to append ledger entry",
			"user_id", entry.UserID,
			"type", string(entry.Kind),
			"amount", entry.Amount.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// BalanceOf sums every entry of the user at read time
func (r *LedgerRepository) BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::text FROM ledger WHERE user_id = $1`

	var raw string
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&raw); err != nil {
		r.logger.Error("Failed to compute balance", "user_id", userID, "error", err)
		return decimal.Zero, fmt.Errorf("failed to compute balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance %q: %w", raw, err)
	}
	return balance, nil
}

// GetByUserID lists a user's entries newest first
func (r *LedgerRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, user_id, order_id, amount::text, type, created_at
		FROM ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	return r.list(ctx, "user_id", userID, query, userID, limit, offset)
}

// CountByUserID counts a user's entries for pagination
func (r *LedgerRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger WHERE user_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// GetByOrderID lists every entry tied to an order in insertion order
func (r *LedgerRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*ledger.Entry, error) {
	query := `
		SELECT id, user_id, order_id, amount::text, type, created_at
		FROM ledger
		WHERE order_id = $1
		ORDER BY id ASC
	`

	return r.list(ctx, "order_id", orderID, query, orderID)
}

func (r *LedgerRepository) list(ctx context.Context, key string, id int64, query string, args ...any) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", key, id, "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", key, id, "error", err)
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", key, id, "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		entry  ledger.Entry
		amount string
		kind   string
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.OrderID, &amount, &kind, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger amount %q: %w", amount, err)
	}
	entry.Amount = parsed
	entry.Kind = ledger.Kind(kind)
	return &entry, nil
}
