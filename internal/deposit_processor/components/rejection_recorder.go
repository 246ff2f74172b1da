package components

import (
	"context"
	"log/slog"

	"github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/platform/messaging/producers"
)

// RejectionRecorderImpl parks rejected notifications on the dead-letter topic
type RejectionRecorderImpl struct {
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

func NewRejectionRecorder(dlq producers.DeadLetterPublisher, logger *slog.Logger) service.RejectionRecorder {
	return &RejectionRecorderImpl{
		dlq:    dlq,
		logger: logger,
	}
}

// RecordRejection publishes the original message with its reason. A failure
// is returned so the message is not committed.
func (r *RejectionRecorderImpl) RecordRejection(ctx context.Context, key, value []byte, reason string) error {
	if err := r.dlq.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		r.logger.Error("Failed to publish rejected notification to DLQ",
			"message_key", string(key),
			"reason", reason,
			"error", err,
		)
		return err
	}

	r.logger.Info("Rejected notification published to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
