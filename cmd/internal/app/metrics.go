package app

import (
	"net/http"
	"time"

	"brandhub/cmd/internal/auth/guard"
	"brandhub/cmd/internal/principal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry served at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	logouts         *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brandhub_auth_login_total",
			Help: "Password login attempts by principal kind and result.",
		}, []string{"kind", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brandhub_auth_refresh_total",
			Help: "Refresh token rotations by principal kind and result.",
		}, []string{"kind", "result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brandhub_auth_logout_total",
			Help: "Logout requests by result.",
		}, []string{"result"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brandhub_guard_rejections_total",
			Help: "Requests rejected by the access guard.",
		}, []string{"mode"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brandhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "class"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.refreshes,
		m.logouts,
		m.guardRejections,
		m.httpDuration,
	)
	return m
}

// Login counts a password-login outcome by principal kind.
func (m *Metrics) Login(kind principal.Kind, result string) {
	m.logins.WithLabelValues(kind.String(), result).Inc()
}

// Refresh counts a refresh-rotation outcome by principal kind.
func (m *Metrics) Refresh(kind principal.Kind, result string) {
	m.refreshes.WithLabelValues(kind.String(), result).Inc()
}

// Logout counts a logout.
func (m *Metrics) Logout(result string) {
	m.logouts.WithLabelValues(result).Inc()
}

// GuardRejected is a guard.Observer.
func (m *Metrics) GuardRejected(mode guard.Mode) {
	m.guardRejections.WithLabelValues(mode.String()).Inc()
}

// ObserveRequest records one served request. route is the matched mux pattern.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, statusClass(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
