package domain

import (
	"context"
	"strings"
	"time"
)

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID        string  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     string  `json:"email"`
	Role      *Role   `json:"role"`
}

// Tokens is the credential pair issued by the identity provider.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ExpiresWithin reports whether the access token expires before now+d.
// Tokens without a known expiry never report as expiring.
func (t Tokens) ExpiresWithin(now time.Time, d time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(t.ExpiresAt)
}

type AuthGateway interface {
	Login(ctx context.Context, email, password string) (Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*User, error)
	Validate(ctx context.Context, accessToken string) error
}

// CanManage reports whether the role name contains one of the allowed
// fragments, case-insensitively. A nil role yields ErrNoRole.
func CanManage(role *Role, allowed []string) error {
	if role == nil || strings.TrimSpace(role.Name) == "" {
		return ErrNoRole
	}
	name := strings.ToLower(role.Name)
	for _, fragment := range allowed {
		if fragment != "" && strings.Contains(name, strings.ToLower(fragment)) {
			return nil
		}
	}
	return ErrForbidden
}

type accessTokenKey struct{}

// WithAccessToken attaches the signed-in user's access token. Directus calls
// made with such a context act on behalf of that user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessToken(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(accessTokenKey{}).(string)
	return tok, ok && tok != ""
}
