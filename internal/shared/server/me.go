package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ingest-gateway/internal/shared/server/middleware"
	"ingest-gateway/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint. The group must run the auth middleware.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	respond.OK(c, gin.H{
		"userId": identity.OwnerID,
		"email":  identity.Email,
	})
}
