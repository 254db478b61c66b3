package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gsmb",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gsmb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gsmb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	redmineRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gsmb",
			Subsystem: "redmine",
			Name:      "requests_total",
			Help:      "Total number of Redmine API calls.",
		},
		[]string{"operation", "outcome"},
	)

	otpIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gsmb",
			Subsystem: "otp",
			Name:      "issued_total",
			Help:      "Total number of one-time codes issued.",
		},
	)

	otpVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gsmb",
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "Total number of OTP verification attempts.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		redmineRequests,
		otpIssued,
		otpVerifications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one handled HTTP request.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncInFlight marks a request as started.
func IncInFlight() { httpInFlight.Inc() }

// DecInFlight marks a request as finished.
func DecInFlight() { httpInFlight.Dec() }

// RecordRedmineCall records the outcome of one Redmine API call.
func RecordRedmineCall(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	redmineRequests.WithLabelValues(operation, outcome).Inc()
}

// RecordOTPIssued counts a delivered one-time code.
func RecordOTPIssued() { otpIssued.Inc() }

// RecordOTPVerification counts a verification attempt by outcome
// ("verified", "invalid" or "expired").
func RecordOTPVerification(outcome string) {
	otpVerifications.WithLabelValues(outcome).Inc()
}
