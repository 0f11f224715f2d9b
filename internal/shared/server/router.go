package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ingest-gateway/internal/documents"
	"ingest-gateway/internal/services/health"
	"ingest-gateway/internal/shared/config"
	"ingest-gateway/internal/shared/metrics"
	"ingest-gateway/internal/shared/ratelimit"
	"ingest-gateway/internal/shared/server/middleware"
	"ingest-gateway/internal/shared/server/respond"
	"ingest-gateway/internal/shared/telemetry"
)

const (
	rateLimitGroupUpload  = "UPLOAD"
	rateLimitGroupDefault = "DEFAULT"
)

// RouterDeps holds dependencies needed to build the router.
type RouterDeps struct {
	Config          config.Config
	Validator       middleware.TokenValidator
	DocumentHandler *documents.Handler
	Health          *health.Service
	Limiter         *ratelimit.Limiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	authed := api.Group("")
	authed.Use(
		middleware.Auth(deps.Validator),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateLimitGroupDefault,
			GroupFor:     rateLimitGroupFor,
			Limiter:      deps.Limiter,
			Rules: map[string]ratelimit.Rule{
				rateLimitGroupUpload: {Rate: cfg.UploadRatePerMinute / 60, Burst: cfg.UploadBurst},
			},
		}),
	)
	registerMeRoutes(authed)

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterUploadRoutes(authed)
		if cfg.ListRequireAuth {
			deps.DocumentHandler.RegisterReadRoutes(authed)
		} else {
			telemetry.Warn("router.documents_list_public", map[string]any{
				"hint": "set LIST_REQUIRE_AUTH=true to require a token for document reads",
			})
			deps.DocumentHandler.RegisterReadRoutes(api)
		}
	}

	return r
}

func rateLimitGroupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/documents/upload" {
		return rateLimitGroupUpload
	}
	return rateLimitGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
