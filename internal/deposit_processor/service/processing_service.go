package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/domain/user"
	"github.com/channel-escrow-market/internal/metrics"
	"github.com/channel-escrow-market/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type ProcessingServiceImpl struct {
	db            persistence.TxRunner
	validator     NotificationValidator
	userRepo      user.Repository
	creditManager CreditManager
	outboxManager OutboxManager
	logger        *slog.Logger
}

func NewProcessingService(
	db persistence.TxRunner,
	validator NotificationValidator,
	userRepo user.Repository,
	creditManager CreditManager,
	outboxManager OutboxManager,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		db:            db,
		validator:     validator,
		userRepo:      userRepo,
		creditManager: creditManager,
		outboxManager: outboxManager,
		logger:        logger,
	}
}

// Process validates the notification, skips hashes already credited, and
// records the deposit, its ledger credit and a deposit_credited event in one
// transaction.
func (s *ProcessingServiceImpl) Process(ctx context.Context, n *deposit.Notification) (deposit.Result, error) {
	logger := s.logger.With("tx_hash", n.TxHash)

	// 1. Validate recipient and comment
	telegramID, err := s.validator.Validate(n)
	if err != nil {
		logger.Warn("Deposit notification rejected", "error", err)
		return "", err
	}

	// 2. Check idempotency
	seen, err := s.validator.CheckIdempotency(ctx, n.TxHash)
	if err != nil {
		return "", shared.Internal("failed to check deposit idempotency", err)
	}
	if seen {
		logger.Info("Deposit already processed")
		return deposit.ResultAlreadyProcessed, nil
	}

	// 3. Resolve the user, never creating one
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return "", shared.Internal("failed to resolve deposit user", err)
	}
	if u == nil {
		logger.Warn("Deposit for unknown user", "telegram_id", telegramID)
		return "", shared.NewError(shared.KindNotFound, "User not found")
	}

	// 4. Credit in one transaction
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		d, err := s.creditManager.Credit(ctx, tx, n, u)
		if err != nil {
			return err
		}
		return s.outboxManager.CreateOutboxEntry(ctx, tx, outbox.NewDepositEvent(u.ID, d.Amount, d.TxHash, d.CreatedAt))
	})
	if err != nil {
		if errors.Is(err, deposit.ErrDuplicateTxHash{}) {
			logger.Info("Deposit credited concurrently by another delivery")
			return deposit.ResultAlreadyProcessed, nil
		}
		logger.Error("Failed to credit deposit", "user_id", u.ID, "error", err)
		return "", shared.Internal("failed to credit deposit", err)
	}

	metrics.DepositsCreditedAmount.Add(n.Amount.InexactFloat64())
	logger.Info("Deposit credited", "user_id", u.ID, "amount", n.Amount.String())
	return deposit.ResultCredited, nil
}
