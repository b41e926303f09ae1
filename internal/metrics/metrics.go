// Package metrics exposes Prometheus collectors for the API and the sweep job.
package metrics

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pierre_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pierre_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	reservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pierre_reservations_created_total",
			Help: "Reservations stored after an authorized first payment",
		},
	)

	contributions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pierre_contributions_total",
			Help: "Contribution attempts by outcome",
		},
		[]string{"outcome"},
	)

	reservationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pierre_reservation_transitions_total",
			Help: "Reservation status changes",
		},
		[]string{"status"},
	)

	expirySweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pierre_expiry_sweeps_total",
			Help: "Expiry sweep runs by result",
		},
		[]string{"result"},
	)

	expiredReservations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pierre_reservations_expired_total",
			Help: "Reservations cancelled because their event passed",
		},
	)

	settlementSweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pierre_settlement_sweeps_total",
			Help: "Settlement sweep runs by result",
		},
		[]string{"result"},
	)

	resettledPayments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pierre_payments_resettled_total",
			Help: "Payments captured or released by the settlement sweep instead of an event consumer",
		},
	)
)

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Serve exposes /metrics on addr for processes without a gin router.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "addr", addr, "error", err)
		}
	}()
	return srv
}

func ReservationCreated() {
	reservationsCreated.Inc()
	reservationTransitions.WithLabelValues("confirmed").Inc()
}

// Contribution counts one attempt; outcome is "accepted" or an error kind.
func Contribution(outcome string) {
	contributions.WithLabelValues(outcome).Inc()
}

func Transition(status string) {
	reservationTransitions.WithLabelValues(status).Inc()
}

func ExpirySweep(expired int, err error) {
	if err != nil {
		expirySweeps.WithLabelValues("error").Inc()
	} else {
		expirySweeps.WithLabelValues("ok").Inc()
	}
	expiredReservations.Add(float64(expired))
}

func SettlementSweep(settled int, err error) {
	if err != nil {
		settlementSweeps.WithLabelValues("error").Inc()
	} else {
		settlementSweeps.WithLabelValues("ok").Inc()
	}
	resettledPayments.Add(float64(settled))
}

// RegisterDB exports connection pool statistics for db. Registering the
// same database twice is a no-op.
func RegisterDB(db *sql.DB, name string) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, name))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
