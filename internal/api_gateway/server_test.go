package api_gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-escrow-market/internal/config"
	"github.com/channel-escrow-market/internal/domain/user"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(string) (*user.Claims, error) {
	return nil, errors.New("signature mismatch")
}

func newTestServer(dependencies map[string]Pinger) *Server {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server:      config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewServer(logger, cfg, Services{Verifier: rejectingVerifier{}}, dependencies)
}

func TestServer_Health(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		srv := newTestServer(map[string]Pinger{"postgres": stubPinger{}, "mongodb": stubPinger{}})

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, map[string]interface{}{"postgres": "ok", "mongodb": "ok"}, body["checks"])
	})

	t.Run("one dependency down", func(t *testing.T) {
		srv := newTestServer(map[string]Pinger{"postgres": stubPinger{}, "mongodb": stubPinger{err: errors.New("no reachable servers")}})

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "no reachable servers")
	})
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(nil)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/me"},
		{http.MethodGet, "/api/v1/me"},
		{http.MethodGet, "/api/v1/me/ledger"},
		{http.MethodGet, "/me/activity"},
		{http.MethodGet, "/me/deposit-instructions"},
		{http.MethodPost, "/orders"},
		{http.MethodPost, "/api/v1/orders/1/buy"},
		{http.MethodPost, "/orders/1/confirm"},
		{http.MethodPost, "/orders/1/cancel"},
		{http.MethodGet, "/orders/1/ledger"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, nil)
			req.Header.Set("Authorization", "Bearer forged")
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
		})
	}

	t.Run("metrics are exposed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "market_http_request_duration_seconds")
	})
}
