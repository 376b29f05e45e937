package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trustweave/portal/pkg/metrics"
)

// Metrics records per-route request latency. The route template is used as
// the path label so /api/admin/records/:id stays one series per route rather
// than one per record.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// Unmatched requests share one series instead of minting a label
			// per probed path.
			route = "unmatched"
		}

		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
