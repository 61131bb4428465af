package observability

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/database"
)

// Domain counters are package level so services record without holding a
// Manager; each registry created by the Manager registers them.
var (
	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bistro_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	menuMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bistro_menu_mutations_total",
			Help: "Successful menu writes by entity and action",
		},
		[]string{"entity", "action"},
	)
)

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginError              = "error"
)

// RecordLogin counts a login attempt.
func RecordLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordMenuMutation counts a successful menu write.
func RecordMenuMutation(entity, action string) {
	menuMutations.WithLabelValues(entity, action).Inc()
}

type httpCollectors struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPCollectors(reg prometheus.Registerer) *httpCollectors {
	factory := promauto.With(reg)
	labels := []string{"method", "route", "status"}
	return &httpCollectors{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bistro_http_requests_total",
			Help: "Total number of HTTP requests",
		}, labels),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bistro_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, labels),
	}
}

// HTTPMetrics records request count and latency keyed by route template.
// It passes requests through untouched when no registry is active.
func (m *Manager) HTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m.http == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := []string{c.Request().Method, route, strconv.Itoa(status)}
			m.http.requests.WithLabelValues(labels...).Inc()
			m.http.duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RegisterDBStats exposes pool statistics for the writer and, when distinct,
// the reader pool.
func RegisterDBStats(m *Manager, conns *database.Connections, logger *zap.Logger) {
	if m.registry == nil {
		return
	}
	register := func(pool string, db *sql.DB) {
		if err := m.registry.Register(collectors.NewDBStatsCollector(db, pool)); err != nil {
			logger.Warn("db stats collector not registered", zap.String("pool", pool), zap.Error(err))
		}
	}
	register("writer", conns.Writer.DB)
	if conns.Reader != conns.Writer {
		register("reader", conns.Reader.DB)
	}
}
