package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fakeGoogle(t *testing.T, email string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "google-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer google-access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"email":   email,
			"name":    "Jane Shopper",
			"picture": "https://example.com/jane.png",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/api/v1/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		UserinfoURL: srv.URL + "/",
	})
}

func TestAuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(GoogleConfig{ClientID: "client", ClientSecret: "secret", RedirectURL: "http://localhost/cb"})

	raw := p.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client", u.Query().Get("client_id"))
	assert.Contains(t, u.Query().Get("scope"), "userinfo.email")
}

func TestExchange(t *testing.T) {
	srv := fakeGoogle(t, "jane@example.com")
	p := newTestProvider(srv)

	id, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", id.Email)
	assert.Equal(t, "Jane Shopper", id.Name)
	assert.Equal(t, "https://example.com/jane.png", id.Picture)
}

func TestExchangeFailures(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		p := newTestProvider(fakeGoogle(t, "jane@example.com"))
		_, err := p.Exchange(context.Background(), "bad-code")
		require.ErrorContains(t, err, "exchange google code")
	})

	t.Run("no email", func(t *testing.T) {
		p := newTestProvider(fakeGoogle(t, ""))
		_, err := p.Exchange(context.Background(), "good-code")
		require.ErrorIs(t, err, ErrNoEmail)
	})
}
