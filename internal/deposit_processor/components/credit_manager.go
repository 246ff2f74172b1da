package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

// CreditManagerImpl implements the CreditManager interface
type CreditManagerImpl struct {
	depositRepo deposit.Repository
	ledgerRepo  ledger.Repository
	logger      *slog.Logger
}

// NewCreditManager creates a new CreditManagerImpl
func NewCreditManager(depositRepo deposit.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) service.CreditManager {
	return &CreditManagerImpl{
		depositRepo: depositRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger,
	}
}

// Credit records the deposit first and then its ledger entry. The unique
// tx_hash makes a concurrent second delivery fail before any ledger write.
func (m *CreditManagerImpl) Credit(ctx context.Context, tx pgx.Tx, n *deposit.Notification, u *user.User) (*deposit.Deposit, error) {
	d := deposit.NewDeposit(n, u.TelegramID)
	if err := m.depositRepo.WithTx(tx).Create(ctx, d); err != nil {
		if errors.Is(err, deposit.ErrDuplicateTxHash{}) {
			m.logger.Info("Deposit record already exists", "tx_hash", n.TxHash)
			return nil, err
		}
		return nil, fmt.Errorf("failed to record deposit %s: %w", n.TxHash, err)
	}

	entry, err := ledger.NewDeposit(u.ID, n.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid deposit amount for %s: %w", n.TxHash, err)
	}
	if err := m.ledgerRepo.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append deposit entry for %s: %w", n.TxHash, err)
	}

	m.logger.Info("Deposit recorded", "tx_hash", n.TxHash, "user_id", u.ID, "ledger_id", entry.ID)
	return d, nil
}
