package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/shared"
)

func TestPaymentHandler_Webhook(t *testing.T) {
	body := []byte(`{"transaction":{"hash":"abc"}}`)

	tests := []struct {
		name       string
		result     deposit.Result
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "credited", result: deposit.ResultCredited, wantStatus: http.StatusOK, wantBody: `"status":"credited"`},
		{name: "replay is success", result: deposit.ResultAlreadyProcessed, wantStatus: http.StatusOK, wantBody: `"status":"already_processed"`},
		{name: "secret mismatch", err: shared.NewError(shared.KindUnauthorized, "Invalid webhook secret"), wantStatus: http.StatusForbidden, wantBody: `"code":"UNAUTHORIZED"`},
		{name: "wrong recipient", err: shared.NewError(shared.KindBadRequest, "Wrong recipient"), wantStatus: http.StatusBadRequest, wantBody: `"message":"Wrong recipient"`},
		{name: "unknown user", err: shared.NewError(shared.KindNotFound, "User not found"), wantStatus: http.StatusNotFound, wantBody: `"code":"NOT_FOUND"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payments := new(MockPaymentService)
			payments.On("Ingest", mock.Anything, body, "s3cret").Return(tc.result, tc.err)
			h := NewPaymentHandler(newTestLogger(), payments)

			router := setupTestRouter(nil)
			router.POST("/payments/webhook", h.Webhook)

			req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
			req.Header.Set(WebhookSecretHeader, "s3cret")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.wantBody)
		})
	}

	t.Run("oversized body", func(t *testing.T) {
		payments := new(MockPaymentService)
		h := NewPaymentHandler(newTestLogger(), payments)

		router := setupTestRouter(nil)
		router.POST("/payments/webhook", h.Webhook)

		req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(make([]byte, maxWebhookBody+1)))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		payments.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
	})
}
