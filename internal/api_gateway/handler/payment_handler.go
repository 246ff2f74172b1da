package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channel-escrow-market/internal/api_gateway/service"
	"github.com/channel-escrow-market/internal/domain/shared"
)

const (
	// WebhookSecretHeader carries the shared secret configured on the indexer
	WebhookSecretHeader = "X-Webhook-Secret"

	maxWebhookBody = 64 << 10
)

// PaymentHandler receives deposit notifications from the chain indexer
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Webhook ingests one notification. A replayed transaction is a success.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("Failed to read webhook body", "error", err)
		RespondBadRequest(c, "Invalid payload structure")
		return
	}

	result, err := h.paymentService.Ingest(c.Request.Context(), body, c.GetHeader(WebhookSecretHeader))
	if err != nil {
		// Secret mismatch answers 403 but keeps its UNAUTHORIZED code
		if shared.KindOf(err) == shared.KindUnauthorized {
			_ = c.Error(err)
			RespondWithError(c, http.StatusForbidden, shared.KindUnauthorized, shared.MessageOf(err))
			return
		}
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, WebhookResponse{Status: string(result)})
}
