package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lab-allocation-backend/internal/model"
)

const identityKey = "identity"

// IdentityResolver validates a bearer token.
type IdentityResolver interface {
	Resolve(token string) (model.Identity, error)
}

// Authenticate resolves the Authorization bearer token and stores the caller's
// identity on the context. Requests without a valid token get 401.
func Authenticate(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
				"code":  "unauthenticated",
			})
			return
		}

		identity, err := resolver.Resolve(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
				"code":  "unauthenticated",
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed with 403.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if ok {
			for _, r := range roles {
				if identity.Role == r {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "permission denied",
			"code":  "permission_denied",
		})
	}
}

// CurrentIdentity returns the identity Authenticate stored on c.
func CurrentIdentity(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}
