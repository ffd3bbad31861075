package directus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/arenadesk/internal/domain"
)

var meFields = []string{"id", "first_name", "last_name", "email", "role.id", "role.name"}

// defaultTokenLifetime applies when Directus omits "expires".
const defaultTokenLifetime = time.Hour

// AuthAPI wraps the Directus /auth and /users/me endpoints.
type AuthAPI struct {
	client *Client
	clock  clockwork.Clock
}

var _ domain.AuthGateway = (*AuthAPI)(nil)

func NewAuthAPI(c *Client, clock clockwork.Clock) *AuthAPI {
	return &AuthAPI{client: c, clock: clock}
}

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      *int64 `json:"expires"` // milliseconds
}

func (a *AuthAPI) tokens(p tokenPayload) domain.Tokens {
	lifetime := defaultTokenLifetime
	if p.Expires != nil && *p.Expires > 0 {
		lifetime = time.Duration(*p.Expires) * time.Millisecond
	}
	return domain.Tokens{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    a.clock.Now().Add(lifetime),
	}
}

// Login exchanges credentials for tokens. Any 4xx from Directus means the
// credentials were rejected.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (domain.Tokens, error) {
	var p tokenPayload
	err := a.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": email, "password": password, "mode": "json"},
		Auth:   Anonymous,
	}, &p)
	if err != nil {
		if s := StatusOf(err); s >= 400 && s < 500 {
			return domain.Tokens{}, errors.Join(domain.ErrInvalidCredentials, err)
		}
		return domain.Tokens{}, err
	}
	return a.tokens(p), nil
}

func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	var p tokenPayload
	err := a.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   map[string]string{"refresh_token": refreshToken, "mode": "json"},
		Auth:   Anonymous,
	}, &p)
	if err != nil {
		if s := StatusOf(err); s >= 400 && s < 500 {
			return domain.Tokens{}, errors.Join(domain.ErrRefreshRejected, err)
		}
		return domain.Tokens{}, err
	}
	if p.AccessToken == "" {
		return domain.Tokens{}, domain.ErrRefreshRejected
	}
	return a.tokens(p), nil
}

func (a *AuthAPI) Logout(ctx context.Context, refreshToken string) error {
	return a.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Body:   map[string]string{"refresh_token": refreshToken, "mode": "json"},
		Auth:   Anonymous,
	}, nil)
}

// Me loads the profile of the user whose token is in ctx.
func (a *AuthAPI) Me(ctx context.Context) (*domain.User, error) {
	var user *domain.User
	err := a.client.Do(ctx, Request{Path: "/users/me", Query: NewQuery().Fields(meFields...).Values(), Auth: AsUser}, &user)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

// Validate checks a user token cheaply.
func (a *AuthAPI) Validate(ctx context.Context, token string) error {
	return a.client.Do(ctx, Request{Path: "/users/me", Query: NewQuery().Fields("id").Values(), Token: token}, nil)
}

// ServerInfo returns /server/info as seen by the service token.
func (a *AuthAPI) ServerInfo(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	err := a.client.Do(ctx, Request{Path: "/server/info"}, &info)
	return info, err
}

// ServerHealth hits the unauthenticated health endpoint.
func (a *AuthAPI) ServerHealth(ctx context.Context) error {
	_, err := a.client.DoRaw(ctx, Request{Path: "/server/health", Auth: Anonymous})
	return err
}

// ProbeArenas reads a single arena with the caller's token.
func (a *AuthAPI) ProbeArenas(ctx context.Context) (int, error) {
	var items []map[string]any
	err := a.client.Do(ctx, Request{Path: arenasPath, Query: NewQuery().Fields("id", "name").Limit(1).Values(), Auth: AsUser}, &items)
	return len(items), err
}
