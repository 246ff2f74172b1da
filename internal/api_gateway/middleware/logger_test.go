package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/channel-escrow-market/internal/domain/user"
)

func newBufferedLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("LogsRequestDetails", func(t *testing.T) {
		var logBuffer bytes.Buffer

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Logger(newBufferedLogger(&logBuffer)))
		router.GET("/orders/:id", func(c *gin.Context) {
			c.Set(UserKey, &user.User{ID: 7, TelegramID: 42})
			c.String(http.StatusOK, "OK")
		})

		req, _ := http.NewRequest(http.MethodGet, "/orders/5?verbose=1", nil)
		req.Header.Set("User-Agent", "test-agent")
		testCorrelationID := uuid.New().String()
		req.Header.Set(CorrelationIDHeader, testCorrelationID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"INFO"`)
		assert.Contains(t, logOutput, `"msg":"HTTP request"`)
		assert.Contains(t, logOutput, `"method":"GET"`)
		assert.Contains(t, logOutput, `"path":"/orders/5?verbose=1"`)
		assert.Contains(t, logOutput, `"route":"/orders/:id"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"latency":`)
		assert.Contains(t, logOutput, `"user_agent":"test-agent"`)
		assert.Contains(t, logOutput, `"correlation_id":"`+testCorrelationID+`"`)
		assert.Contains(t, logOutput, `"user_id":7`)
	})

	t.Run("ClientErrorsLogAtWarn", func(t *testing.T) {
		var logBuffer bytes.Buffer

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Logger(newBufferedLogger(&logBuffer)))
		router.POST("/orders", func(c *gin.Context) {
			c.String(http.StatusBadRequest, "nope")
		})

		req, _ := http.NewRequest(http.MethodPost, "/orders", strings.NewReader("body"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"WARN"`)
		assert.Contains(t, logOutput, `"status":400`)
		assert.NotContains(t, logOutput, `"user_id"`)
	})

	t.Run("ServerErrorsLogAtError", func(t *testing.T) {
		var logBuffer bytes.Buffer

		router := gin.New()
		router.Use(Logger(newBufferedLogger(&logBuffer)))
		router.GET("/me", func(c *gin.Context) {
			c.Status(http.StatusInternalServerError)
		})

		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Contains(t, logBuffer.String(), `"level":"ERROR"`)
	})
}
