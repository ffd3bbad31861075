package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	// refreshAhead is how close to expiry an access token is refreshed proactively.
	refreshAhead   = 30 * time.Second
	refreshTimeout = 15 * time.Second
)

var errNoAccessToken = errors.New("identity provider returned no access token")

type AuthService struct {
	gateway      domain.AuthGateway
	clock        clockwork.Clock
	metrics      *metrics.BookingMetrics
	refreshGroup singleflight.Group
}

func NewAuthService(gateway domain.AuthGateway, clock clockwork.Clock, m *metrics.BookingMetrics) *AuthService {
	return &AuthService{gateway: gateway, clock: clock, metrics: m}
}

// Login trims the email and exchanges the credentials for tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Tokens, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Tokens{}, domain.Invalid("email and password are required")
	}

	tokens, err := s.gateway.Login(ctx, email, password)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		s.metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return domain.Tokens{}, domain.ErrInvalidCredentials
	case err != nil:
		s.metrics.LoginAttempts.WithLabelValues("error").Inc()
		return domain.Tokens{}, fmt.Errorf("login: %w", err)
	case tokens.AccessToken == "":
		s.metrics.LoginAttempts.WithLabelValues("error").Inc()
		return domain.Tokens{}, errNoAccessToken
	}

	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	return tokens, nil
}

// Logout revokes the refresh token. Failures are logged, never returned:
// the caller clears its session regardless.
func (s *AuthService) Logout(ctx context.Context, tokens domain.Tokens) {
	if tokens.RefreshToken == "" {
		return
	}
	if err := s.gateway.Logout(ctx, tokens.RefreshToken); err != nil {
		slog.WarnContext(ctx, "Directus logout failed", "error", err)
	}
}

// ValidToken returns usable tokens for the session, refreshing them when the
// access token is about to expire or has been rejected. refreshed reports
// whether the caller must persist the returned tokens.
func (s *AuthService) ValidToken(ctx context.Context, tokens domain.Tokens) (_ domain.Tokens, refreshed bool, _ error) {
	if tokens.AccessToken == "" {
		return domain.Tokens{}, false, domain.ErrMissingToken
	}

	if tokens.RefreshToken != "" && tokens.ExpiresWithin(s.clock.Now(), refreshAhead) {
		fresh, err := s.refresh(ctx, tokens.RefreshToken, "proactive")
		if err != nil {
			return domain.Tokens{}, false, err
		}
		return fresh, true, nil
	}

	err := s.gateway.Validate(ctx, tokens.AccessToken)
	switch {
	case err == nil:
		return tokens, false, nil
	case errors.Is(err, domain.ErrUnauthorized) && tokens.RefreshToken != "":
		fresh, err := s.refresh(ctx, tokens.RefreshToken, "reactive")
		if err != nil {
			return domain.Tokens{}, false, err
		}
		return fresh, true, nil
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.Tokens{}, false, domain.ErrUnauthorized
	default:
		return domain.Tokens{}, false, fmt.Errorf("validate access token: %w", err)
	}
}

// refresh collapses concurrent refreshes of the same refresh token into one
// call, since Directus rotates refresh tokens and a second use would fail.
// The shared call is detached from the request that started it; each caller
// stops waiting when its own context ends.
func (s *AuthService) refresh(ctx context.Context, refreshToken, trigger string) (domain.Tokens, error) {
	ch := s.refreshGroup.DoChan(refreshToken, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.gateway.Refresh(refreshCtx, refreshToken)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return domain.Tokens{}, fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	}

	if res.Err != nil {
		s.metrics.TokenRefresh.WithLabelValues(trigger, "failed").Inc()
		slog.InfoContext(ctx, "Token refresh failed", "trigger", trigger, "error", res.Err)
		return domain.Tokens{}, errors.Join(domain.ErrUnauthorized, res.Err)
	}

	fresh := res.Val.(domain.Tokens)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refreshToken
	}
	s.metrics.TokenRefresh.WithLabelValues(trigger, "success").Inc()
	return fresh, nil
}

// CurrentUser loads the profile of the user whose token is in ctx.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	return s.gateway.Me(ctx)
}
