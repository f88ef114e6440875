package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/metabridge-api/internal/handler"
	"github.com/jwalitptl/metabridge-api/pkg/auth"
	"github.com/jwalitptl/metabridge-api/pkg/errors"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate requires a valid Bearer token and puts its claims on the context.
// Any missing, malformed, badly signed or expired token is rejected with 401.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.reject(c, "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			m.reject(c, "Invalid authorization format")
			return
		}

		claims, err := m.jwt.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			m.reject(c, "Invalid or expired token")
			return
		}

		c.Set(handler.ContextClaims, claims)
		c.Set(handler.ContextUserID, claims.ID)
		c.Set(handler.ContextEmail, claims.Email)
		c.Set(handler.ContextUserType, claims.UserType)
		c.Next()
	}
}

// RequireUserType rejects tokens minted for another user type. It must run after Authenticate.
func (m *AuthMiddleware) RequireUserType(userType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(handler.ContextUserType) != userType {
			m.reject(c, "Invalid or expired token")
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, message string) {
	_ = c.Error(errors.NewUnauthorized(message))
	c.Abort()
}

// Claims returns the claims set by Authenticate, if any.
func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(handler.ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
