// Package metrics exposes Prometheus collectors for the progression service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "progression",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "progression",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "progression",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	awards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "progression",
			Subsystem: "ledger",
			Name:      "awards_total",
			Help:      "Total number of XP award attempts by outcome.",
		},
		[]string{"kind", "outcome"},
	)

	awardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "progression",
			Subsystem: "ledger",
			Name:      "award_duration_seconds",
			Help:      "Duration of award transactions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"kind"},
	)

	levelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "progression",
			Subsystem: "ledger",
			Name:      "level_ups_total",
			Help:      "Total number of level-up transitions.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		awards,
		awardDuration,
		levelUps,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordAward records the outcome of an award attempt. Outcome is one of
// "applied", "duplicate" or "error".
func RecordAward(kind, outcome string, duration time.Duration, leveledUp bool) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	awards.WithLabelValues(kind, outcome).Inc()
	awardDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if leveledUp {
		levelUps.Inc()
	}
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "users" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/users"
	}
	if len(parts) == 2 {
		return "/users/:user"
	}
	return "/users/:user/" + parts[2]
}
