package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

const (
	ctxUsername = "username"
	ctxRole     = "role"
)

// RequireRole rejects authenticated callers whose role is not listed. It must
// run after JWTMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		utils.Error(c, 403, "INSUFFICIENT_PRIVILEGE", "This operation requires a higher role")
		c.Abort()
	}
}

// GetUsername returns the authenticated username, or "" on public routes.
func GetUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

// GetRole returns the authenticated role, or "" on public routes.
func GetRole(c *gin.Context) models.Role {
	return models.Role(c.GetString(ctxRole))
}
