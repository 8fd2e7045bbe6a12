package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	loginAttempts   *prometheus.CounterVec
	twoFactorChecks *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	syncRecords     *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		reg: reg,
		loginAttempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_login_attempts_total",
			Help: "Total number of password login attempts by result.",
		}, []string{"result"}),
		twoFactorChecks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_two_factor_checks_total",
			Help: "Total number of second-factor checks by method and result.",
		}, []string{"method", "result"}),
		rateLimited: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_rate_limited_total",
			Help: "Total number of requests rejected by a rate limit rule.",
		}, []string{"rule"}),
		syncRecords: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_sync_records_total",
			Help: "Total number of records handled by sync jobs.",
		}, []string{"job", "outcome"}),
		httpDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "HTTP request latencies by route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6, 10, 30},
		}, []string{"method", "route", "status"}),
	}
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) TwoFactorCheck(method, result string) {
	if m == nil {
		return
	}
	m.twoFactorChecks.WithLabelValues(method, result).Inc()
}

func (m *Metrics) RateLimited(rule string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(rule).Inc()
}

func (m *Metrics) SyncRecords(job, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.syncRecords.WithLabelValues(job, outcome).Add(float64(n))
}

// Middleware observes request durations labelled with the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
