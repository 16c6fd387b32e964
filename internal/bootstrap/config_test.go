package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pixelgrid/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "pixel")
	t.Setenv("DB_NAME", "pixelgrid")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "pg:", cfg.KeyPrefix)
	assert.Equal(t, 24, cfg.JWTExpiryHours)
	assert.Equal(t, time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 2048, cfg.MaxCanvasSize)
	assert.Equal(t, 10.0, cfg.Editor.MoveSpeed)
	assert.Equal(t, 0.25, cfg.Editor.MinScale)
	assert.Equal(t, 64.0, cfg.Editor.MaxScale)
	assert.Equal(t, domain.Color("red"), cfg.Editor.DefaultColor)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("EDITOR_MOVE_SPEED", "25")
	t.Setenv("EDITOR_MAX_SCALE", "16")
	t.Setenv("EDITOR_DEFAULT_COLOR", "#00ff00")
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://a.example.com, https://b.example.com")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("LOG_LEVEL", "verbose")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 25.0, cfg.Editor.MoveSpeed)
	assert.Equal(t, 16.0, cfg.Editor.MaxScale)
	assert.Equal(t, domain.Color("#00ff00"), cfg.Editor.DefaultColor)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("EDITOR_MIN_SCALE", "abc")
	t.Setenv("EDITOR_MAX_SCALE", "0.1")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "EDITOR_MIN_SCALE")
	assert.Contains(t, err.Error(), "invalid editor scale bounds")
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware([]string{"https://a.example.com"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://a.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://a.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
