package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ingest-gateway/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		documentID, _ := c.Get("documentId")
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     OwnerIDFromContext(c),
			"document_id": documentID,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if outcome := c.GetString("ingestOutcome"); outcome != "" {
			fields["ingest_outcome"] = outcome
		}
		if authErr := c.GetString("authError"); authErr != "" {
			fields["auth_error"] = authErr
		}
		telemetry.Info("request.complete", fields)
	}
}
