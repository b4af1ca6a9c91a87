package middleware

import (
	"errors"
	"net/http"

	"studytrack/studytrack/services"
	"studytrack/studytrack/utils/token"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userID"
	emailKey  = "email"
)

func AuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := token.ExtractToken(c)
		if err != nil {
			abortUnauthorized(c, token.ErrAuthHeaderMissing)
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				abortUnauthorized(c, token.ErrTokenExpired)
				return
			}
			abortUnauthorized(c, token.ErrInvalidToken)
			return
		}

		// Store user info in the context for later use
		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)

		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id set by AuthMiddleware.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(int64)
	if !ok || userID <= 0 {
		return 0, false
	}
	return userID, true
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
