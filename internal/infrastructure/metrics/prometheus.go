// Package metrics exports gateway and HTTP counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// Recorder implements application.Recorder and holds the HTTP request
// counters used by the REST middleware.
type Recorder struct {
	operations     *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	securityEvents *prometheus.CounterVec

	requests      *prometheus.CounterVec
	requestErrors *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posnet_gateway_operations_total",
				Help: "Gateway operations by outcome category.",
			},
			[]string{"operation", "category"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "posnet_gateway_operation_duration_seconds",
				Help:    "Round trip time of gateway operations.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		securityEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posnet_security_events_total",
				Help: "MAC, signature and tampering failures.",
			},
			[]string{"code"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posnet_http_requests_total",
				Help: "HTTP requests served by the gateway API.",
			},
			[]string{"path", "status"},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posnet_http_request_errors_total",
				Help: "HTTP requests answered with a 4xx or 5xx status.",
			},
			[]string{"path", "status"},
		),
	}

	reg.MustRegister(r.operations, r.latency, r.securityEvents, r.requests, r.requestErrors)
	return r
}

func (r *Recorder) ObserveOperation(op posnet.Operation, category domain.ErrorCategory, elapsed time.Duration) {
	r.operations.WithLabelValues(string(op), string(category)).Inc()
	r.latency.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

func (r *Recorder) SecurityEvent(code domain.ErrorCode) {
	r.securityEvents.WithLabelValues(code.String()).Inc()
}

// ObserveRequest counts one HTTP request. path must be the route pattern, not
// the raw URL, to keep label cardinality bounded.
func (r *Recorder) ObserveRequest(path string, status int) {
	s := strconv.Itoa(status)
	r.requests.WithLabelValues(path, s).Inc()
	if status >= 400 {
		r.requestErrors.WithLabelValues(path, s).Inc()
	}
}
