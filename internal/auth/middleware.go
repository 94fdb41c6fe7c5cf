package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// userIDKey is the gin context key holding the authenticated user id
const userIDKey = "auth.user_id"

// TokenValidator resolves a bearer token to a user id
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// RequireBearer rejects requests without a valid "Authorization: Bearer"
// token and stores the user id for UserID.
func RequireBearer(v TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := v.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside RequireBearer
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
