package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// JWTMiddleware authenticates back-office requests with a bearer token.
type JWTMiddleware struct {
	secret string
}

func NewJWTMiddleware(secret string) *JWTMiddleware {
	return &JWTMiddleware{secret: secret}
}

// Handle requires an Authorization: Bearer header. A missing header is 401,
// an invalid or expired token is 403.
func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return m.handle(false)
}

// HandleStream also accepts the token as a ?token= query parameter, for
// EventSource clients that cannot set headers.
func (m *JWTMiddleware) HandleStream() gin.HandlerFunc {
	return m.handle(true)
}

func (m *JWTMiddleware) handle(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
				utils.Error(c, 401, "UNAUTHENTICATED", "Invalid authorization header")
				c.Abort()
				return
			}
			token = strings.TrimSpace(parts[1])
		case allowQuery:
			token = c.Query("token")
		}
		if token == "" {
			utils.Error(c, 401, "UNAUTHENTICATED", "Missing authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(m.secret, token)
		if err != nil {
			utils.Error(c, 403, "FORBIDDEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxUsername, claims.Username)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}
