package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-gateway/internal/shared/auth"
	"ingest-gateway/internal/shared/auth/authtest"
	"ingest-gateway/internal/shared/config"
)

func newTestRouter(t *testing.T) (*gin.Engine, *authtest.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	iss := authtest.NewIssuer(t, "key-1")
	validator := auth.NewValidator(auth.NewKeySetCache(iss, auth.KeySetOptions{}), auth.ValidatorOptions{})
	r := NewRouter(RouterDeps{
		Config:    config.Config{CORSAllowOrigin: []string{"http://localhost:5173"}},
		Validator: validator,
	})
	return r, iss
}

func TestMeReturnsTokenIdentity(t *testing.T) {
	r, iss := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+iss.Sign("key-1", "user-42", time.Now(), time.Hour))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "user-42", body["userId"])
	assert.Equal(t, "user-42@example.com", body["email"])
}

func TestMeWithoutTokenIsUnauthorized(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestHealthWithoutChecksIsOK(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"ok":true,"checks":{}}`, resp.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
