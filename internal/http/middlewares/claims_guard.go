package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireClaim gates a route on a (type, value) claim carried by the
// verified token. Must run after RequireAuth.
func (m *AuthMiddleware) RequireClaim(claimType, claimValue string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)

		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		if identity.Claims[claimType] != claimValue {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"errors": []gin.H{{"message": "You do not have access to this resource."}},
			})
			return
		}

		c.Next()
	}
}
