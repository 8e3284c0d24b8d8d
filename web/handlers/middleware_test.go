package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mattiasfr/kintree/internal/config"
	"github.com/mattiasfr/kintree/web/handlers"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthDevelopmentMode(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{Mode: "development"}}
	h := handlers.RequireAuth(okHandler(), cfg)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/persons", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthProductionMode(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{
		Mode:     "production",
		APIToken: "secret-token",
	}}
	h := handlers.RequireAuth(okHandler(), cfg)

	// No token.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/persons", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong token.
	r := httptest.NewRequest(http.MethodGet, "/api/persons", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct token.
	r = httptest.NewRequest(http.MethodGet, "/api/persons", nil)
	r.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthProductionWithoutConfiguredToken(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{Mode: "production"}}
	h := handlers.RequireAuth(okHandler(), cfg)

	r := httptest.NewRequest(http.MethodGet, "/api/persons", nil)
	r.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := handlers.NewRateLimiter(1.0, 2)
	h := handlers.RateLimitMiddleware(okHandler(), rl)

	// Burst of 2 passes, third is limited.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
