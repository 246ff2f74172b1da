package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/channel-escrow-market/internal/metrics"
)

// Metrics records request duration by method, matched route and status.
// Unmatched paths share one label so scans cannot blow up cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
