package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics covers booking writes and session token handling.
type BookingMetrics struct {
	Created       *prometheus.CounterVec
	Conflicts     prometheus.Counter
	TokenRefresh  *prometheus.CounterVec
	LoginAttempts *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		Created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total number of bookings created, by mode.",
		}, []string{"mode"}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Total number of booking writes rejected for overlapping an existing booking.",
		}),
		TokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Total number of access token refreshes, by trigger and result.",
		}, []string{"trigger", "result"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.Created, m.Conflicts, m.TokenRefresh, m.LoginAttempts)
	return m
}
