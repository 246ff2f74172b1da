package service

import (
	"context"

	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

// ProcessingService credits validated deposit notifications.
// Rejections are *shared.Error values of a business kind; anything else is a
// storage failure that is safe to retry.
type ProcessingService interface {
	Process(ctx context.Context, n *deposit.Notification) (deposit.Result, error)
}

// NotificationValidator checks a notification before anything is written
type NotificationValidator interface {
	// Validate checks recipient and comment and returns the telegram id to credit
	Validate(n *deposit.Notification) (int64, error)
	CheckIdempotency(ctx context.Context, txHash string) (bool, error)
}

// CreditManager records the deposit and its ledger credit inside tx
type CreditManager interface {
	Credit(ctx context.Context, tx pgx.Tx, n *deposit.Notification, u *user.User) (*deposit.Deposit, error)
}

// OutboxManager handles the creation of outbox entries for credited deposits
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, event *outbox.Event) error
}

// RejectionRecorder keeps notifications that can never be credited
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, key, value []byte, reason string) error
}
