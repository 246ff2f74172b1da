package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/metrics"
)

const metricsSource = "kafka"

// DepositEventHandler handles deposit notifications consumed from Kafka
type DepositEventHandler struct {
	processingService service.ProcessingService
	rejections        service.RejectionRecorder
	nanoExp           int32
	logger            *slog.Logger
}

// NewDepositEventHandler creates a new handler
func NewDepositEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	rejections service.RejectionRecorder,
	nanoExp int32,
) *DepositEventHandler {
	return &DepositEventHandler{
		processingService: processingService,
		rejections:        rejections,
		nanoExp:           nanoExp,
		logger:            logger,
	}
}

// HandleMessage processes one notification. A nil return commits the offset:
// credited, already processed and rejected-and-parked messages are all done.
// Storage failures are returned so the consumer retries the same message.
func (h *DepositEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	n, err := deposit.ParseNotification(value, h.nanoExp)
	if err != nil {
		h.logger.Warn("Unparseable deposit notification", "message_key", string(key), "error", err)
		return h.reject(ctx, key, value, "Invalid payload structure")
	}

	logger := h.logger.With("tx_hash", n.TxHash)
	logger.Info("Received deposit notification", "amount", n.Amount.String())

	result, err := h.processingService.Process(ctx, n)
	if err != nil {
		if shared.KindOf(err) == shared.KindInternal {
			logger.Error("Failed to process deposit notification", "error", err)
			metrics.WebhookResults.WithLabelValues(metricsSource, "error").Inc()
			return fmt.Errorf("processing deposit %s failed: %w", n.TxHash, err)
		}
		return h.reject(ctx, key, value, shared.MessageOf(err))
	}

	metrics.WebhookResults.WithLabelValues(metricsSource, string(result)).Inc()
	logger.Info("Deposit notification processed", "result", string(result))
	return nil
}

func (h *DepositEventHandler) reject(ctx context.Context, key, value []byte, reason string) error {
	metrics.WebhookResults.WithLabelValues(metricsSource, "rejected").Inc()
	if err := h.rejections.RecordRejection(ctx, key, value, reason); err != nil {
		return fmt.Errorf("failed to park rejected notification: %w", err)
	}
	return nil
}
