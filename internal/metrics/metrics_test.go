package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/events/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("/events/:id", "GET", "418"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/abc", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/events/:id", "GET", "418")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "pierre_http_requests_total"))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(expiredReservations)
	ExpirySweep(3, nil)
	ExpirySweep(0, errors.New("db down"))
	assert.Equal(t, before+3, testutil.ToFloat64(expiredReservations))
	assert.GreaterOrEqual(t, testutil.ToFloat64(expirySweeps.WithLabelValues("error")), 1.0)

	resettled := testutil.ToFloat64(resettledPayments)
	SettlementSweep(2, nil)
	assert.Equal(t, resettled+2, testutil.ToFloat64(resettledPayments))

	c := testutil.ToFloat64(contributions.WithLabelValues("accepted"))
	Contribution("accepted")
	assert.Equal(t, c+1, testutil.ToFloat64(contributions.WithLabelValues("accepted")))
}
