package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/trungnamdev/authapi/internal/auth"
)

// TokenVerifier is kept small so tests can fake it easily.
type TokenVerifier interface {
	Verify(raw string) (*auth.Identity, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

const ctxIdentityKey = "auth.identity"

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

		if raw == "" {
			abortUnauthorized(c, "Missing or invalid bearer token")
			return
		}

		identity, err := m.tokens.Verify(raw)

		if err != nil {
			abortUnauthorized(c, "Invalid or expired bearer token")
			return
		}

		c.Set(ctxIdentityKey, identity)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"errors": []gin.H{{"message": message}},
	})
}

// IdentityFromContext returns the verified identity stashed by RequireAuth.
func IdentityFromContext(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)

	if !ok {
		return nil, false
	}

	id, ok := v.(*auth.Identity)
	return id, ok
}
