package directus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/domain"
	"github.com/pscheid92/arenadesk/internal/platform/correlation"
	"github.com/pscheid92/arenadesk/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *metrics.DirectusMetrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := metrics.NewDirectusMetrics(prometheus.NewRegistry())
	c := NewClient(Config{BaseURL: srv.URL + "/", ServiceToken: "svc", Timeout: 5 * time.Second}, m, WithRetryPolicy(fastRetry))
	return c, m
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestDo_DecodesDataEnvelope(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer svc", r.Header.Get("Authorization"))
		assert.Equal(t, "/items/games", r.URL.Path)
		writeData(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Quest"}})
	})

	var out []map[string]any
	require.NoError(t, c.Do(context.Background(), Request{Path: "/items/games"}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Quest", out[0]["name"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "items/games", "2xx")))
}

func TestDo_EmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	out := map[string]any{"untouched": true}
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/items/games/1"}, &out))
	assert.Equal(t, true, out["untouched"])
}

func TestDo_UserTokenFromContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-tok", r.Header.Get("Authorization"))
		writeData(w, http.StatusOK, nil)
	})

	ctx := domain.WithAccessToken(context.Background(), "user-tok")
	require.NoError(t, c.Do(ctx, Request{Path: "/users/me", Auth: AsUser}, nil))

	err := c.Do(context.Background(), Request{Path: "/users/me", Auth: AsUser}, nil)
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestDo_AnonymousAndCorrelation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "abc123", r.Header.Get(correlation.HeaderName))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"x":1}`, string(body))
		writeData(w, http.StatusOK, nil)
	})

	ctx := correlation.WithID(context.Background(), "abc123")
	require.NoError(t, c.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/login", Body: map[string]int{"x": 1}, Auth: Anonymous}, nil))
}

func TestDo_RetriesGetOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"ok": true})
	})

	var out map[string]any
	require.NoError(t, c.Do(context.Background(), Request{Path: "/server/info"}, &out))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Retries))
}

func TestDo_DoesNotRetryClientErrorsOrWrites(t *testing.T) {
	tests := []struct {
		name   string
		method string
		status int
	}{
		{"get 403", http.MethodGet, http.StatusForbidden},
		{"post 500", http.MethodPost, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errors":[{"message":"nope"}]}`))
			})

			err := c.Do(context.Background(), Request{Method: tt.method, Path: "/items/bookings"}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.status, StatusOf(err))
			assert.Contains(t, err.Error(), "nope")
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, &APIError{Status: 401}, domain.ErrUnauthorized)
	assert.ErrorIs(t, &APIError{Status: 403}, domain.ErrForbidden)
	assert.ErrorIs(t, &APIError{Status: 404}, domain.ErrNotFound)
	assert.NoError(t, (&APIError{Status: 500}).Unwrap())
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
}

func TestDo_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.retryPolicy = retry.Policy{MaxAttempts: 1}

	for range 5 {
		require.Error(t, c.Do(context.Background(), Request{Path: "/server/info"}, nil))
	}
	err := c.Do(context.Background(), Request{Path: "/server/info"}, nil)

	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, circuitbreaker.OpenState, c.CircuitState())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitState))
}

func TestResourceLabel(t *testing.T) {
	assert.Equal(t, "items/bookings", resourceLabel("/items/bookings/42"))
	assert.Equal(t, "auth/login", resourceLabel("/auth/login"))
	assert.Equal(t, "users", resourceLabel("/users/me"))
	assert.Equal(t, "root", resourceLabel("/"))
}

func TestQuery(t *testing.T) {
	q := NewQuery().
		Fields("id", "name").
		Sort("name").
		Limit(1).
		Filter("date", "_gte", "2025-01-01").
		Or("phone", "_eq", "+7 700").
		Or("phone", "_eq", "7700")

	v := q.Values()
	assert.Equal(t, "id,name", v.Get("fields"))
	assert.Equal(t, "name", v.Get("sort"))
	assert.Equal(t, "1", v.Get("limit"))
	assert.Equal(t, "2025-01-01", v.Get("filter[date][_gte]"))
	assert.Equal(t, "+7 700", v.Get("filter[_or][0][phone][_eq]"))
	assert.Equal(t, "7700", v.Get("filter[_or][1][phone][_eq]"))
}
