package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pierre/internal/auth"
	"pierre/internal/config"
	"pierre/internal/messaging"
	"pierre/internal/repository"
	"pierre/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter() http.Handler {
	cfg := &config.Config{RequestTimeout: time.Second, MetricsEnabled: true}
	services := service.NewServices(service.Deps{
		Repos:     repository.NewRepositories(nil),
		Publisher: messaging.Disconnected(),
		Tokens:    auth.NewTokens("secret", time.Hour),
	})
	return NewRouter(cfg, services, nil)
}

func TestRoutesRegistered(t *testing.T) {
	r := NewRouter(&config.Config{}, service.NewServices(service.Deps{
		Repos:  repository.NewRepositories(nil),
		Tokens: auth.NewTokens("secret", time.Hour),
	}), nil)

	have := map[string]bool{}
	for _, route := range r.Routes() {
		have[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /api/events",
		"GET /api/events/grouped",
		"GET /api/tables/event/:id",
		"GET /api/reservations/code/:code",
		"POST /api/reservations/create-payment-intent",
		"POST /api/reservations/create-with-payment",
		"POST /api/reservations/code/:code/payment-intent",
		"POST /api/reservations/code/:code/contribute",
		"POST /api/reservations/code/:code/cancel",
		"GET /api/reservations/mine",
		"POST /api/auth/login",
	} {
		assert.True(t, have[want], want)
	}
	assert.False(t, have["GET /metrics"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r := testRouter()

	for _, path := range []string{"/api/reservations/mine", "/api/reservations/code/RES-ABCD1234/cancel"} {
		method := http.MethodGet
		if path != "/api/reservations/mine" {
			method = http.MethodPost
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reservations/mine", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
