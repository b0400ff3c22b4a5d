// Package metrics exposes Prometheus collectors for the back-office API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lasercalc_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lasercalc_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lasercalc_login_attempts_total",
			Help: "Total number of admin login attempts",
		},
		[]string{"outcome"},
	)

	// AuthzDecisionsTotal counts authorization decisions by guard and result.
	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lasercalc_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"guard", "decision"},
	)

	// AuditWritesTotal counts audit appends by outcome. Failures never fail
	// the audited operation, so this is the place to alert on them.
	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lasercalc_audit_writes_total",
			Help: "Total number of audit log writes",
		},
		[]string{"outcome"},
	)

	// AuditExportRowsTotal counts rows written by CSV exports.
	AuditExportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lasercalc_audit_export_rows_total",
			Help: "Total number of audit rows exported as CSV",
		},
	)
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	DecisionAllow  = "allow"
	DecisionDeny   = "deny"
)

// RecordAuthz records an authorization decision for guard.
func RecordAuthz(guard string, allowed bool) {
	decision := DecisionDeny
	if allowed {
		decision = DecisionAllow
	}
	AuthzDecisionsTotal.WithLabelValues(guard, decision).Inc()
}

// RecordLogin records a login attempt.
func RecordLogin(success bool) {
	outcome := OutcomeFailure
	if success {
		outcome = OutcomeSuccess
	}
	LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency labelled by the chi route
// pattern, which keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
