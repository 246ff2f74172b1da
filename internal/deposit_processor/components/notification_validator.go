package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/shared"
)

type NotificationValidatorImpl struct {
	depositRepo   deposit.Repository
	walletAddress string
	commentPrefix string
	logger        *slog.Logger
}

func NewNotificationValidator(depositRepo deposit.Repository, walletAddress, commentPrefix string, logger *slog.Logger) service.NotificationValidator {
	return &NotificationValidatorImpl{
		depositRepo:   depositRepo,
		walletAddress: walletAddress,
		commentPrefix: commentPrefix,
		logger:        logger,
	}
}

// Validate checks the recipient wallet and extracts the telegram id from the comment
func (v *NotificationValidatorImpl) Validate(n *deposit.Notification) (int64, error) {
	if n.Destination != v.walletAddress {
		v.logger.Warn("Deposit sent to another wallet", "tx_hash", n.TxHash, "destination", n.Destination)
		return 0, shared.NewError(shared.KindBadRequest, "Wrong recipient")
	}

	telegramID, err := deposit.ParseComment(n.Comment, v.commentPrefix)
	if err != nil {
		v.logger.Warn("Deposit comment rejected", "tx_hash", n.TxHash, "comment", n.Comment)
		return 0, shared.WrapError(shared.KindBadRequest, "Invalid deposit comment", err)
	}

	return telegramID, nil
}

// CheckIdempotency reports whether the transaction hash was already credited
func (v *NotificationValidatorImpl) CheckIdempotency(ctx context.Context, txHash string) (bool, error) {
	existing, err := v.depositRepo.GetByTxHash(ctx, txHash)
	if err != nil {
		v.logger.Error("Failed to check deposits for idempotency", "tx_hash", txHash, "error", err)
		return false, fmt.Errorf("idempotency check failed for %s: %w", txHash, err)
	}
	return existing != nil, nil
}
