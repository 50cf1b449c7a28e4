package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// LoggingMiddleware assigns the request id, echoes it in X-Request-ID and logs
// one line per request after it completes.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := utils.RequestID(c)
		c.Header(utils.RequestIDHeader, requestID)

		// Process request
		c.Next()

		// Log after response
		latency := time.Since(start)
		status := c.Writer.Status()

		ev := log.Info()
		if status >= 500 {
			ev = log.Error()
		}
		ev.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Str("username", GetUsername(c)).
			Msg("HTTP Request")
	}
}
