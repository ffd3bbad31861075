package metrics

import (
	"strconv"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
)

// DirectusMetrics tracks calls to the Directus REST API.
type DirectusMetrics struct {
	RequestDuration     *prometheus.HistogramVec
	RequestsTotal       *prometheus.CounterVec
	Retries             prometheus.Counter
	CircuitState        prometheus.Gauge
	CircuitStateChanges *prometheus.CounterVec
}

func NewDirectusMetrics(reg prometheus.Registerer) *DirectusMetrics {
	m := &DirectusMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "directus",
			Name:      "request_duration_seconds",
			Help:      "Duration of Directus API requests in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "resource"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directus",
			Name:      "requests_total",
			Help:      "Total number of Directus API requests, by status class.",
		}, []string{"method", "resource", "status"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directus",
			Name:      "retries_total",
			Help:      "Total number of retried Directus requests.",
		}),
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "directus",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		CircuitStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directus",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of circuit breaker transitions, by new state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.Retries, m.CircuitState, m.CircuitStateChanges)
	return m
}

// StatusClass collapses an HTTP status to "2xx", "4xx" etc; 0 means transport error.
func StatusClass(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func (m *DirectusMetrics) ObserveCircuitState(state circuitbreaker.State) {
	m.CircuitStateChanges.WithLabelValues(state.String()).Inc()
	switch state {
	case circuitbreaker.ClosedState:
		m.CircuitState.Set(0)
	case circuitbreaker.HalfOpenState:
		m.CircuitState.Set(1)
	case circuitbreaker.OpenState:
		m.CircuitState.Set(2)
	}
}
