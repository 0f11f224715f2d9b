package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ingest-gateway/internal/shared/auth"
	"ingest-gateway/internal/shared/server/respond"
)

const (
	identityKey = "identity"
	ownerIDKey  = "userId"
)

// TokenValidator verifies a raw bearer token.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (auth.Identity, error)
}

// Auth requires a valid bearer token and stores the caller's identity in context.
func Auth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		identity, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			c.Set("authError", err.Error())
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// SetIdentity stores a validated identity on the request.
func SetIdentity(c *gin.Context, identity auth.Identity) {
	c.Set(identityKey, identity)
	c.Set(ownerIDKey, identity.OwnerID)
}

// IdentityFromContext fetches the identity set by the auth middleware.
func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	if c == nil {
		return auth.Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := val.(auth.Identity)
	return identity, ok && identity.OwnerID != ""
}

// OwnerIDFromContext fetches the owner id set by the auth middleware.
func OwnerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(ownerIDKey)
}
