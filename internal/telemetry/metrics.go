package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TimurManjosov/flagprops/internal/properties"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	propertyMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_matches_total",
			Help: "Property filter evaluations by operator and outcome",
		},
		[]string{"operator", "outcome"},
	)
	PatternCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pattern_cache_entries",
		Help: "Number of compiled regex patterns currently cached",
	})
)

// Init registers the collectors with the default registry.
func Init() {
	prometheus.MustRegister(httpReqs, httpDur, propertyMatches, PatternCacheEntries)
}

// RecordPropertyMatch counts one filter evaluation. It has the shape of
// targeting.Observer.
func RecordPropertyMatch(op properties.Operator, outcome string) {
	propertyMatches.WithLabelValues(string(op), outcome).Inc()
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// chi fills in the route pattern while routing, so read it afterwards
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
