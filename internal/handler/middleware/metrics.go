package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per finished request.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, method, route string, status int, d time.Duration)
}

// RequestMetrics records every request under its route template. Requests
// that match no route share the "unmatched" label.
func RequestMetrics(rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
