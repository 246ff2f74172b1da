package service

import (
	"context"
	"crypto/subtle"
	"log/slog"

	processing "github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/metrics"
)

const webhookSource = "webhook"

// PaymentServiceImpl implements the PaymentService interface on top of the
// same processing pipeline the Kafka consumer uses
type PaymentServiceImpl struct {
	processor     processing.ProcessingService
	webhookSecret string
	nanoExp       int32
	logger        *slog.Logger
}

// NewPaymentService creates a new payment service. An empty secret disables
// the header check.
func NewPaymentService(logger *slog.Logger, processor processing.ProcessingService, webhookSecret string, nanoExp int32) PaymentService {
	return &PaymentServiceImpl{
		processor:     processor,
		webhookSecret: webhookSecret,
		nanoExp:       nanoExp,
		logger:        logger,
	}
}

// Ingest authenticates, parses and processes one webhook notification
func (s *PaymentServiceImpl) Ingest(ctx context.Context, raw []byte, providedSecret string) (deposit.Result, error) {
	if s.webhookSecret != "" && subtle.ConstantTimeCompare([]byte(providedSecret), []byte(s.webhookSecret)) != 1 {
		metrics.WebhookResults.WithLabelValues(webhookSource, "unauthorized").Inc()
		s.logger.Warn("Webhook secret mismatch")
		return "", shared.NewError(shared.KindUnauthorized, "Invalid webhook secret")
	}

	n, err := deposit.ParseNotification(raw, s.nanoExp)
	if err != nil {
		metrics.WebhookResults.WithLabelValues(webhookSource, "rejected").Inc()
		return "", shared.WrapError(shared.KindBadRequest, "Invalid payload structure", err)
	}

	result, err := s.processor.Process(ctx, n)
	if err != nil {
		if shared.KindOf(err) == shared.KindInternal {
			metrics.WebhookResults.WithLabelValues(webhookSource, "error").Inc()
		} else {
			metrics.WebhookResults.WithLabelValues(webhookSource, "rejected").Inc()
		}
		return "", err
	}

	metrics.WebhookResults.WithLabelValues(webhookSource, string(result)).Inc()
	return result, nil
}
