// Package metrics holds the Prometheus collectors for the API.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapi_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todoapi_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthAttempts counts login, register and authorize calls by outcome.
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapi_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthAttempts,
	)
}

// StatusClass buckets an HTTP status into "2xx", "4xx" and so on.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
