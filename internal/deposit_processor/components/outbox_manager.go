package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/jackc/pgx/v5"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry stores event in the same transaction as the credit
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, event *outbox.Event) error {
	if err := outbox.Record(ctx, m.outboxRepo.WithTx(tx), event); err != nil {
		m.logger.Error("Failed to create outbox message",
			"event_id", event.ID.String(),
			"event_type", string(event.Type),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for event %s: %w", event.ID.String(), err)
	}

	m.logger.Debug("Outbox message created", "event_id", event.ID.String(), "event_type", string(event.Type))
	return nil
}
