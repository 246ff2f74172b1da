package deposit

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository persists credited deposits
type Repository interface {
	Create(ctx context.Context, deposit *Deposit) error

	// GetByTxHash returns nil, nil when the hash has not been credited
	GetByTxHash(ctx context.Context, txHash string) (*Deposit, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateTxHash indicates the transaction was already credited
type ErrDuplicateTxHash struct {
	TxHash string
}

func (e ErrDuplicateTxHash) Error() string {
	return "deposit already processed: " + e.TxHash
}

// Is matches any ErrDuplicateTxHash when the target carries no hash
func (e ErrDuplicateTxHash) Is(target error) bool {
	t, ok := target.(ErrDuplicateTxHash)
	if !ok {
		return false
	}
	return t.TxHash == "" || t.TxHash == e.TxHash
}
