package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docvault/internal/server/auth"
)

// CtxUserID is the gin context key carrying the authenticated user id.
const CtxUserID = "userID"

// AuthMiddleware validates the bearer JWT and stores the user id in the
// request context. Requests without a valid token never reach a handler.
func AuthMiddleware(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "missing Authorization header"},
			)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token format"},
			)
			return
		}

		userID, err := auth.GetUserIDFromToken(tokenStr, secretKey)
		if err != nil {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token"},
			)
			return
		}

		c.Set(CtxUserID, userID)
		c.Next()
	}
}
