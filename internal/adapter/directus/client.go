package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/domain"
	"github.com/pscheid92/arenadesk/internal/platform/correlation"
	"github.com/pscheid92/arenadesk/internal/platform/retry"
	"github.com/pscheid92/arenadesk/internal/platform/version"
)

// Auth selects which bearer token a request carries.
type Auth int

const (
	// AsService uses the static service token.
	AsService Auth = iota
	// AsUser uses the signed-in user's token from domain.WithAccessToken.
	AsUser
	// Anonymous sends no Authorization header.
	Anonymous
)

const maxErrorBody = 4 << 10

var defaultRetry = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

type Config struct {
	BaseURL      string
	ServiceToken string
	Timeout      time.Duration
}

type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	breaker      circuitbreaker.CircuitBreaker[any]
	retryPolicy  retry.Policy
	metrics      *metrics.DirectusMetrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retryPolicy = p }
}

// NewClient builds a client whose calls share one circuit breaker:
// - 60% failure rate over at least 5 requests in a 10s window opens it
// - it stays open for 30s, then one success closes it again
func NewClient(cfg Config, m *metrics.DirectusMetrics, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		serviceToken: cfg.ServiceToken,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		retryPolicy:  defaultRetry,
		metrics:      m,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "directus",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			c.metrics.ObserveCircuitState(e.NewState)
		}).
		Build()

	return c
}

// Request describes one Directus API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Auth   Auth
	Token  string // explicit bearer token, overrides Auth
}

// APIError is a non-2xx response from Directus.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directus error %d: %s", e.Status, e.Body)
}

// Unwrap maps auth and lookup failures onto domain errors so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Do sends the request and decodes the "data" member of the response into
// out. An empty response body leaves out untouched. GET requests are retried
// on transport errors and 5xx responses.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	raw, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode directus response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode directus data: %w", err)
	}
	return nil
}

// DoRaw returns the undecoded response body.
func (c *Client) DoRaw(ctx context.Context, req Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	token, err := c.token(ctx, req)
	if err != nil {
		return nil, err
	}

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode directus request: %w", err)
		}
	}

	policy := c.retryPolicy
	if req.Method != http.MethodGet {
		policy.MaxAttempts = 1
	}
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.metrics.Retries.Inc()
		slog.WarnContext(ctx, "Retrying Directus request",
			"path", req.Path, "attempt", attempt, "backoff", backoff, "error", err)
	}

	raw, err := retry.Do(ctx, policy, classify, func(int) ([]byte, error) {
		return c.send(ctx, req, token, body)
	})
	if err != nil {
		var perm *retry.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, err
	}
	return raw, nil
}

func (c *Client) token(ctx context.Context, req Request) (string, error) {
	if req.Token != "" {
		return req.Token, nil
	}
	switch req.Auth {
	case AsUser:
		tok, ok := domain.AccessToken(ctx)
		if !ok {
			return "", domain.ErrMissingToken
		}
		return tok, nil
	case Anonymous:
		return "", nil
	default:
		return c.serviceToken, nil
	}
}

func (c *Client) send(ctx context.Context, req Request, token string, body []byte) ([]byte, error) {
	if !c.breaker.TryAcquirePermit() {
		return nil, fmt.Errorf("directus unavailable: %w", circuitbreaker.ErrOpen)
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build directus request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := correlation.ID(ctx); ok {
		httpReq.Header.Set(correlation.HeaderName, id)
	}

	resource := resourceLabel(req.Path)
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.RequestDuration.WithLabelValues(req.Method, resource).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RequestsTotal.WithLabelValues(req.Method, resource, metrics.StatusClass(0)).Inc()
		if ctx.Err() == nil {
			c.breaker.RecordError(err)
		}
		return nil, fmt.Errorf("directus %s %s: %w", req.Method, req.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.RequestsTotal.WithLabelValues(req.Method, resource, metrics.StatusClass(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordError(err)
		return nil, fmt.Errorf("read directus response: %w", err)
	}

	if resp.StatusCode >= 500 {
		apiErr := &APIError{Status: resp.StatusCode, Body: truncate(raw)}
		c.breaker.RecordError(apiErr)
		return nil, apiErr
	}
	c.breaker.RecordSuccess()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: truncate(raw)}
	}
	return raw, nil
}

// classify retries transport errors and 5xx; 4xx, an open circuit and a
// cancelled context stop immediately.
func classify(err error) retry.Action {
	if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	if status := StatusOf(err); status != 0 {
		if status == http.StatusTooManyRequests {
			return retry.After
		}
		if status < 500 {
			return retry.Stop
		}
	}
	return retry.Retry
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}

// resourceLabel keeps metric cardinality bounded: item IDs are dropped.
func resourceLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) >= 2 && (parts[0] == "items" || parts[0] == "auth" || parts[0] == "server"):
		return parts[0] + "/" + parts[1]
	case parts[0] == "":
		return "root"
	default:
		return parts[0]
	}
}

// CircuitState exposes the breaker state for readiness checks.
func (c *Client) CircuitState() circuitbreaker.State {
	return c.breaker.State()
}
