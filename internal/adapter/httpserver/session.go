package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/arenadesk/internal/domain"
	"github.com/pscheid92/arenadesk/internal/platform/config"
)

const (
	sessionName            = "arenadesk-session"
	sessionKeyAccessToken  = "access_token"
	sessionKeyRefreshToken = "refresh_token"
	sessionKeyExpiresAt    = "expires_at"
)

// setupSessionStore signs the cookie with SESSION_SECRET and, when configured,
// encrypts it with SESSION_ENCRYPTION_KEY so tokens are not readable client-side.
func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	keys := [][]byte{[]byte(cfg.SessionSecret)}
	if cfg.SessionEncryptionKey != "" {
		keys = append(keys, []byte(cfg.SessionEncryptionKey))
	}

	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.RefreshTokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)
	return store
}

// sessionTokens reads the tokens from the session cookie. A missing or
// undecodable cookie yields zero tokens.
func (s *Server) sessionTokens(c echo.Context) domain.Tokens {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return domain.Tokens{}
	}

	var t domain.Tokens
	t.AccessToken, _ = session.Values[sessionKeyAccessToken].(string)
	t.RefreshToken, _ = session.Values[sessionKeyRefreshToken].(string)
	if exp, ok := session.Values[sessionKeyExpiresAt].(int64); ok && exp > 0 {
		t.ExpiresAt = time.Unix(exp, 0)
	}
	return t
}

func (s *Server) saveTokens(c echo.Context, t domain.Tokens) error {
	// A decode error still hands back a fresh session we can overwrite.
	session, _ := s.sessionStore.Get(c.Request(), sessionName)
	putTokens(session, t)
	return session.Save(c.Request(), c.Response().Writer)
}

func putTokens(session *sessions.Session, t domain.Tokens) {
	session.Values[sessionKeyAccessToken] = t.AccessToken
	session.Values[sessionKeyRefreshToken] = t.RefreshToken
	var exp int64
	if !t.ExpiresAt.IsZero() {
		exp = t.ExpiresAt.Unix()
	}
	session.Values[sessionKeyExpiresAt] = exp
}

func (s *Server) clearSession(c echo.Context) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			slog.Error("Failed to create session for clearing", "error", err)
			return
		}
	}
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
}
