package obs

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics groups Prometheus collectors for calls against the POS backend.
type APIMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
}

// NewAPIMetrics registers and returns API call metrics collectors.
func NewAPIMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}
	} else {
		sort.Float64s(buckets)
	}
	m := &APIMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of requests issued to the POS backend.",
		}, []string{"operation", "outcome"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_ms",
			Help:      "POS backend request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"operation"}),
	}
	mustRegister(reg, &m.ReqTotal, &m.ReqDur)
	return m
}

// Observe records one completed backend call.
func (m *APIMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.ReqTotal != nil {
		m.ReqTotal.WithLabelValues(operation, outcome).Inc()
	}
	if m.ReqDur != nil {
		m.ReqDur.WithLabelValues(operation).Observe(DurationMillis(elapsed))
	}
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mustRegister(reg prometheus.Registerer, counter **prometheus.CounterVec, histo **prometheus.HistogramVec) {
	if counter != nil {
		if err := reg.Register(*counter); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					*counter = existing
				}
			} else {
				panic(fmt.Errorf("register counter: %w", err))
			}
		}
	}
	if histo != nil {
		if err := reg.Register(*histo); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
					*histo = existing
				}
			} else {
				panic(fmt.Errorf("register histogram: %w", err))
			}
		}
	}
}
