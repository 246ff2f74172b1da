package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/channel-escrow-market/internal/api_gateway/handler"
	"github.com/channel-escrow-market/internal/api_gateway/middleware"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is reported by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	orders   *handler.OrderHandler
	accounts *handler.AccountHandler
	payments *handler.PaymentHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h handlers,
	auth gin.HandlerFunc,
	dependencies map[string]Pinger,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Recovery(logger))

	// The Mini App calls the bare paths; /api/v1 is the versioned mirror
	registerRoutes(r.Group(""), h, auth)
	registerRoutes(r.Group("/api/v1"), h, auth)

	r.GET("/health", healthHandler(dependencies))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func registerRoutes(g *gin.RouterGroup, h handlers, auth gin.HandlerFunc) {
	orders := g.Group("/orders")
	{
		orders.GET("", h.orders.List)
		orders.GET("/:id", h.orders.GetByID)
		orders.POST("", auth, h.orders.Create)
		orders.POST("/:id/buy", auth, h.orders.Buy)
		orders.POST("/:id/confirm", auth, h.orders.Confirm)
		orders.POST("/:id/cancel", auth, h.orders.Cancel)
		orders.GET("/:id/ledger", auth, h.orders.Settlement)
	}

	me := g.Group("/me", auth)
	{
		me.GET("", h.accounts.Me)
		me.GET("/ledger", h.accounts.Ledger)
		me.GET("/activity", h.accounts.Activity)
		me.GET("/deposit-instructions", h.accounts.DepositInstructions)
	}

	g.POST("/payments/webhook", h.payments.Webhook)
}

// healthHandler reports ok only when every dependency answers a ping
func healthHandler(dependencies map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		checks := make(map[string]string, len(dependencies))
		status := http.StatusOK
		for name, dep := range dependencies {
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": checks, "timestamp": time.Now().UTC()})
	}
}
