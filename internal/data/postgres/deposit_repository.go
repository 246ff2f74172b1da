package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DepositRepository implements the deposit.Repository interface for PostgreSQL
type DepositRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDepositRepository creates a new PostgreSQL deposit repository
func NewDepositRepository(logger *slog.Logger, db *persistence.PostgresDB) deposit.Repository {
	return &DepositRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

func (r *DepositRepository) WithTx(tx pgx.Tx) deposit.Repository {
	return &DepositRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create records a credited transaction. The tx_hash unique constraint makes
// a replay fail with ErrDuplicateTxHash.
func (r *DepositRepository) Create(ctx context.Context, d *deposit.Deposit) error {
	query := `
		INSERT INTO deposits (tx_hash, telegram_id, amount, created_at)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query, d.TxHash, d.TelegramID, d.Amount.String(), d.CreatedAt).Scan(&d.ID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return deposit.ErrDuplicateTxHash{TxHash: d.TxHash}
		}
		r.logger.Error("Failed to record deposit", "tx_hash", d.TxHash, "error", err)
		return fmt.Errorf("failed to record deposit: %w", err)
	}

	return nil
}

// GetByTxHash returns the deposit for a transaction hash, or nil when unseen
func (r *DepositRepository) GetByTxHash(ctx context.Context, txHash string) (*deposit.Deposit, error) {
	query := `
		SELECT id, tx_hash, telegram_id, amount::text, created_at
		FROM deposits
		WHERE tx_hash = $1
	`

	var (
		d      deposit.Deposit
		amount string
	)
	err := r.querier.QueryRow(ctx, query, txHash).Scan(&d.ID, &d.TxHash, &d.TelegramID, &amount, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get deposit", "tx_hash", txHash, "error", err)
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deposit amount %q: %w", amount, err)
	}
	d.Amount = parsed
	return &d, nil
}
