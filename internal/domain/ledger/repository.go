package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository is the append-only store of ledger entries. There is no update
// or delete.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error)
	GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*Entry, error)
	CountByUserID(ctx context.Context, userID int64) (int64, error)
	GetByOrderID(ctx context.Context, orderID int64) ([]*Entry, error)
	WithTx(tx pgx.Tx) Repository
}
