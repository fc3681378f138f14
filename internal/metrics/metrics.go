package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the storefront's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gemstore",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gemstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	orderRequestsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gemstore",
			Name:      "order_requests_created_total",
			Help:      "Total number of order requests submitted.",
		},
	)

	orderRequestDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemstore",
			Name:      "order_request_decisions_total",
			Help:      "Total number of order request decisions by outcome.",
		},
		[]string{"status"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemstore",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)

	eventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gemstore",
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Order request events that could not be published.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		orderRequestsCreated,
		orderRequestDecisions,
		logins,
		eventPublishFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted marks a request in flight; call the returned func when done.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route, status string, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// OrderRequestCreated counts a submitted order request.
func OrderRequestCreated() {
	orderRequestsCreated.Inc()
}

// OrderRequestDecided counts a decision with its resulting status.
func OrderRequestDecided(status string) {
	orderRequestDecisions.WithLabelValues(status).Inc()
}

// LoginAttempt counts a login by result: "success" or "failure".
func LoginAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	logins.WithLabelValues(result).Inc()
}

// EventPublishFailed counts a dropped order request event.
func EventPublishFailed() {
	eventPublishFailures.Inc()
}
