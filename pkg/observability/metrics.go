package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	PermissionChecksTotal   *prometheus.CounterVec
	PermissionCheckDuration *prometheus.HistogramVec

	// Membership metrics
	JoinRequestsTotal   *prometheus.CounterVec
	MembersAddedTotal   *prometheus.CounterVec
	MembersRemovedTotal prometheus.Counter
	RoleWritesTotal     *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive    prometheus.Gauge
	DBConnectionsIdle      prometheus.Gauge
	DBConnectionsWaitCount prometheus.Gauge

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roster_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_permission_checks_total",
				Help: "Total number of permission checks by outcome",
			},
			[]string{"permission", "allowed"},
		),
		PermissionCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roster_permission_check_duration_seconds",
				Help:    "Permission check duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"permission"},
		),
		JoinRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_join_requests_total",
				Help: "Total number of join request transitions",
			},
			[]string{"transition"},
		),
		MembersAddedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_members_added_total",
				Help: "Total number of members added by source",
			},
			[]string{"source"},
		),
		MembersRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "roster_members_removed_total",
				Help: "Total number of members removed",
			},
		),
		RoleWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_role_writes_total",
				Help: "Total number of role create/update/delete operations",
			},
			[]string{"operation"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "roster_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "roster_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "roster_db_connections_wait_count",
				Help: "Cumulative count of connections waited for",
			},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_rate_limited_total",
				Help: "Total number of rate-limited requests",
			},
			[]string{"limiter"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionChecksTotal,
		m.PermissionCheckDuration,
		m.JoinRequestsTotal,
		m.MembersAddedTotal,
		m.MembersRemovedTotal,
		m.RoleWritesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.RateLimitedTotal,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePermissionCheck records a permission check outcome
func (m *Metrics) ObservePermissionCheck(permission string, allowed bool, duration time.Duration) {
	m.PermissionChecksTotal.WithLabelValues(permission, strconv.FormatBool(allowed)).Inc()
	m.PermissionCheckDuration.WithLabelValues(permission).Observe(duration.Seconds())
}

// UpdateDBStats refreshes database pool gauges from sql.DBStats
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
}

// HTTPMiddleware instruments HTTP handlers with request metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	})
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
