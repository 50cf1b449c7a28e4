package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// RecoveryMiddleware turns a panic into a generic 500 and logs the detail.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().
			Str("request_id", c.GetString(utils.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Msg("Recovered from panic")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		c.Abort()
	})
}
