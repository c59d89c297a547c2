package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry коллекторы приложения
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "repairhub",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repairhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "repairhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	caseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repairhub",
			Subsystem: "cases",
			Name:      "transitions_total",
			Help:      "Applied case status transitions.",
		},
		[]string{"kind", "to"},
	)

	pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repairhub",
			Subsystem: "loyalty",
			Name:      "points_awarded_total",
			Help:      "Loyalty points credited, by event kind.",
		},
		[]string{"event"},
	)

	storageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repairhub",
			Subsystem: "store",
			Name:      "retries_total",
			Help:      "Store operations retried after a transient failure.",
		},
		[]string{"op"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		caseTransitions,
		pointsAwarded,
		storageRetries,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted увеличивает счётчик активных запросов и возвращает функцию завершения
func RequestStarted() func(method, path string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(method, path string, status int) {
		httpInFlight.Dec()
		httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordTransition(kind, to string) {
	caseTransitions.WithLabelValues(kind, to).Inc()
}

func RecordPoints(event string, points int64) {
	pointsAwarded.WithLabelValues(event).Add(float64(points))
}

func RecordStorageRetry(op string) {
	storageRetries.WithLabelValues(op).Inc()
}
