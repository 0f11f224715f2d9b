package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, "pdfs", cfg.StorageBucket)
	assert.Equal(t, 5, cfg.JWKSMaxRefreshesPerMin)
	assert.Equal(t, 10*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 3*time.Second, cfg.QueueTimeout)
	assert.False(t, cfg.ListRequireAuth)
}

func TestLoadNormalizesValues(t *testing.T) {
	t.Setenv("ENV", "Development")
	t.Setenv("OBJECT_STORE", "Supabase")
	t.Setenv("QUEUE_BACKEND", " SQS ")
	t.Setenv("AUTH_ISSUER", "https://idp.example.com/auth/v1/")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "s3", cfg.ObjectStoreType)
	assert.Equal(t, "sqs", cfg.QueueBackend)
	assert.Equal(t, "https://idp.example.com/auth/v1/.well-known/jwks.json", cfg.JWKSURL())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigin)
}

func TestJWKSURLPrefersExplicitValue(t *testing.T) {
	cfg := Config{AuthIssuer: "https://idp.example.com", AuthJWKSURL: "https://keys.example.com/jwks"}
	assert.Equal(t, "https://keys.example.com/jwks", cfg.JWKSURL())
	assert.Empty(t, Config{}.JWKSURL())
}

func TestLoadProductionRequiresDatabaseAndIssuer(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/docs")
	t.Setenv("AUTH_ISSUER", "")
	t.Setenv("AUTH_JWKS_URL", "")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("AUTH_ISSUER", "https://idp.example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
}
