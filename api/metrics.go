package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for backend calls.
type Metrics struct {
	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

// NewMetrics creates and registers backend call collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of REST backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "method"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "REST backend calls by outcome.",
		}, []string{"resource", "method", "outcome"}),
	}
	reg.MustRegister(m.duration, m.calls)
	return m
}

func (m *Metrics) observe(resource, method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(resource, method).Observe(elapsed.Seconds())
	m.calls.WithLabelValues(resource, method, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.Status)
	}
	return "transport"
}
