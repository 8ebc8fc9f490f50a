package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yo-Self/yo-self.github.io-sub001/config"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cache"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/compose"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/fetcher"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/service"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		Source:   config.SourceConfig{Kind: config.SourceFile, FixturePath: "../../fixtures/menu.json", HTTPTimeout: time.Second},
		Cache:    config.CacheConfig{TTL: time.Minute},
		Auth:     config.AuthConfig{JWTSecret: "test"},
		Log:      config.LogConfig{Environment: "test"},
		RateSpec: "100-S",
	}
}

func testRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	q, err := newQuerier(cfg.Source)
	require.NoError(t, err)
	svc := service.New(fetcher.New(q, cache.New()), compose.NewComposer(), nil)

	r, err := setupRouter(cfg, svc, nil, zap.NewNop())
	require.NoError(t, err)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewQuerierRejectsUnknownSource(t *testing.T) {
	_, err := newQuerier(config.SourceConfig{Kind: "ftp"})
	assert.Error(t, err)

	_, err = newQuerier(config.SourceConfig{Kind: config.SourceFile, FixturePath: "does-not-exist.json"})
	assert.Error(t, err)
}

func TestRouterServesMenuAndHealth(t *testing.T) {
	r := testRouter(t, testConfig())

	w := get(r, "/api/v1/restaurants/cantina-da-praca")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "memory", w.Header().Get("X-Menu-Cache"))

	w = get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = get(r, "/health/detailed")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"overall_status":"healthy"`)

	assert.Equal(t, http.StatusOK, get(r, "/metrics").Code)
}

func TestHealthDegradedWithoutRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.RedisEnabled = true

	w := get(testRouter(t, cfg), "/health")
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

func TestAdminRouteRequiresToken(t *testing.T) {
	cfg := testConfig()
	r := testRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cache/invalidate", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, _, err := utils.GenerateToken([]byte(cfg.Auth.JWTSecret), "ops", utils.RoleAdmin, time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/cache/invalidate", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesDisabledWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	r := testRouter(t, cfg)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &utils.Claims{Role: utils.RoleAdmin}).SignedString([]byte{})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cache/invalidate", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/restaurants/cantina-da-praca").Code)
}

func TestRouterRejectsBadRateSpec(t *testing.T) {
	cfg := testConfig()
	cfg.RateSpec = "fast"
	_, err := setupRouter(cfg, nil, nil, zap.NewNop())
	assert.Error(t, err)
}
