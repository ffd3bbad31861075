package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pscheid92/arenadesk/internal/platform/config"
	"github.com/stretchr/testify/assert"
)

func TestNewOriginCheck(t *testing.T) {
	appURL := "https://arenas.example.com/settings"

	tests := []struct {
		name          string
		appURL        string
		origin        string
		isDevelopment bool
		want          bool
	}{
		// Always allowed
		{"empty origin", appURL, "", false, true},
		{"app origin", appURL, "https://arenas.example.com", false, true},

		// Rejected in production
		{"different host", appURL, "https://evil.com", false, false},
		{"different port", appURL, "https://arenas.example.com:9090", false, false},
		{"http instead of https", appURL, "http://arenas.example.com", false, false},
		{"subdomain", appURL, "https://sub.arenas.example.com", false, false},

		// Localhost: allowed in dev, rejected in prod
		{"localhost dev", appURL, "http://localhost:8080", true, true},
		{"127.0.0.1 dev", appURL, "http://127.0.0.1:3000", true, true},
		{"localhost prod rejected", appURL, "http://localhost:8080", false, false},

		// Without APP_URL the request host is the app origin
		{"request host", "", "https://panel.internal", false, true},
		{"foreign host without app url", "", "https://evil.com", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newOriginCheck(tt.appURL, tt.isDevelopment)
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://panel.internal/api/bookings", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}

func TestExtractOrigin(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{"full URL with path", "https://example.com/settings", "https://example.com"},
		{"URL with port", "https://example.com:8443/path", "https://example.com:8443"},
		{"http URL", "http://localhost:8080/", "http://localhost:8080"},
		{"empty string", "", ""},
		{"no host", "mailto:user@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractOrigin(tt.rawURL))
		})
	}
}

func TestRequireSameOrigin(t *testing.T) {
	deps := newTestDeps()
	srv := newTestServer(t, deps, func(c *config.Config) {
		c.AppEnv = "production"
		c.AppURL = "https://arenas.example.com"
	})

	send := func(method, origin string) int {
		req := httptest.NewRequest(method, "/api/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, send(http.MethodPost, "https://evil.com"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "https://arenas.example.com"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, ""))
}
