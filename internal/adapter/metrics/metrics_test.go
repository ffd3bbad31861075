package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/arenas", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, path := range []string{"/api/arenas", "/api/arenas", "/health/live"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/arenas", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal), "health checks are not recorded")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(204))
	assert.Equal(t, "4xx", StatusClass(401))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "error", StatusClass(0))
}

func TestDirectusMetrics_ObserveCircuitState(t *testing.T) {
	m := NewDirectusMetrics(prometheus.NewRegistry())

	m.ObserveCircuitState(circuitbreaker.OpenState)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitState))

	m.ObserveCircuitState(circuitbreaker.HalfOpenState)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitState))

	m.ObserveCircuitState(circuitbreaker.ClosedState)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CircuitState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitStateChanges.WithLabelValues("open")))
}

func TestRegistryServesCollectors(t *testing.T) {
	reg := NewRegistry()
	NewBookingMetrics(reg).Conflicts.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arenadesk_booking_conflicts_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
