package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ingest-gateway/internal/documents"
	"ingest-gateway/internal/queue"
	"ingest-gateway/internal/services/health"
	"ingest-gateway/internal/shared/auth"
	"ingest-gateway/internal/shared/config"
	"ingest-gateway/internal/shared/ratelimit"
	"ingest-gateway/internal/shared/server"
	"ingest-gateway/internal/shared/storage/db"
	"ingest-gateway/internal/shared/storage/object"
	localstore "ingest-gateway/internal/shared/storage/object/local"
	s3store "ingest-gateway/internal/shared/storage/object/s3"
	"ingest-gateway/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Redis            *queue.RedisClient
	Store            object.ObjectStore
	Queue            queue.Client
	KeySet           *auth.KeySetCache
	Validator        *auth.Validator
	DocumentsRepo    documents.DocumentsRepo
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
	Health           *health.Service
}

// Overrides replaces individual dependencies, mainly for tests. Zero fields
// are built from config.
type Overrides struct {
	Store       object.ObjectStore
	Repo        documents.DocumentsRepo
	Queue       queue.Client
	JWKSFetcher auth.Fetcher
	Now         func() time.Time
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, Overrides{})
}

// BuildWith is Build with some dependencies supplied by the caller.
func BuildWith(cfg config.Config, o Overrides) (*App, error) {
	cfg.Normalize()
	ctx := context.Background()
	app := &App{Config: cfg}

	if err := app.buildRepo(ctx, o); err != nil {
		return nil, err
	}

	store := o.Store
	if store == nil {
		var err error
		store, err = buildStore(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
	}
	app.Store = store

	if err := app.buildQueue(ctx, o); err != nil {
		app.Close()
		return nil, err
	}

	app.buildAuth(o)

	app.DocumentsService = &documents.Service{
		Store:     app.Store,
		Bucket:    cfg.StorageBucket,
		Repo:      app.DocumentsRepo,
		Queue:     app.Queue,
		QueueName: queue.QueueName,
		Timeouts: documents.Timeouts{
			Storage:  cfg.StorageTimeout,
			Database: cfg.DBTimeout,
			Queue:    cfg.QueueTimeout,
		},
		Now: o.Now,
	}
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)

	checks := map[string]health.Checker{}
	if app.DB != nil {
		checks["database"] = health.CheckFunc(app.DB.PingContext)
	}
	if app.Redis != nil {
		checks["queue"] = app.Redis
	}
	app.Health = health.NewService(checks)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Validator:       app.Validator,
		DocumentHandler: app.DocumentsHandler,
		Health:          app.Health,
		Limiter:         ratelimit.New(o.Now),
	})

	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func (a *App) buildRepo(ctx context.Context, o Overrides) error {
	if o.Repo != nil {
		a.DocumentsRepo = o.Repo
		return nil
	}
	sqlDB, err := buildDB(ctx, a.Config)
	if err != nil {
		return err
	}
	if sqlDB == nil {
		a.DocumentsRepo = documents.NewMemoryRepo()
		return nil
	}
	if a.Config.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	a.DB = sqlDB
	a.DocumentsRepo = &documents.PGRepo{DB: sqlDB}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildQueue(ctx context.Context, o Overrides) error {
	if o.Queue != nil {
		a.Queue = o.Queue
		return nil
	}
	cfg := a.Config
	switch cfg.QueueBackend {
	case "none":
		telemetry.Warn("bootstrap.queue_disabled", map[string]any{"backend": cfg.QueueBackend})
		return nil
	case "sqs":
		client, err := queue.NewSQSClient(ctx, queue.SQSOptions{
			Region:   cfg.AWSRegion,
			QueueURL: cfg.SQSQueueURL,
			Endpoint: cfg.SQSEndpoint,
		})
		if err != nil {
			return err
		}
		a.Queue = client
		return nil
	default:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.queue_disabled", map[string]any{"reason": "REDIS_URL empty"})
				return nil
			}
			return fmt.Errorf("REDIS_URL is required for QUEUE_BACKEND=redis")
		}
		client, err := queue.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		a.Redis = client
		a.Queue = client
		return nil
	}
}

func (a *App) buildAuth(o Overrides) {
	cfg := a.Config
	fetcher := o.JWKSFetcher
	if fetcher == nil {
		url := cfg.JWKSURL()
		if url == "" {
			telemetry.Warn("bootstrap.jwks_unconfigured", map[string]any{
				"hint": "set AUTH_JWKS_URL or AUTH_ISSUER; every token will be rejected",
			})
		}
		fetcher = auth.NewHTTPFetcher(url, cfg.JWKSFetchTimeout)
	}
	a.KeySet = auth.NewKeySetCache(fetcher, auth.KeySetOptions{
		TTL:                   cfg.JWKSCacheTTL,
		MaxRefreshesPerMinute: cfg.JWKSMaxRefreshesPerMin,
		Now:                   o.Now,
	})
	a.Validator = auth.NewValidator(a.KeySet, auth.ValidatorOptions{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		Now:      o.Now,
	})
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
