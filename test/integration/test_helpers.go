//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront-auth/internal/config"
	"storefront-auth/internal/handler"
	"storefront-auth/internal/middleware"
	"storefront-auth/internal/otp"
	"storefront-auth/internal/repository"
	"storefront-auth/internal/router"
	"storefront-auth/internal/service"
	"storefront-auth/internal/session"
	"storefront-auth/internal/token"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) Send(_ context.Context, to string, code string, _ time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[to] = code
	return nil
}

func (i *inbox) code(to string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[to]
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:        "8080",
		RequestTimeout:    5 * time.Second,
		AccessSecret:      "access-secret",
		RefreshSecret:     "refresh-secret",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   168 * time.Hour,
		ResetTokenTTL:     10 * time.Minute,
		RefreshCookieName: "refresh-token",
		SameSite:          "lax",
		OTPTTL:            time.Minute,
		CORSOrigins:       []string{"http://shop.local"},
		RateLimitRPM:      1000,
		AuthRateLimitRPM:  1000,
		OTPRateLimitRPM:   1000,
		MailDriver:        "log",
	}
}

// newServer wires the full router against store. A nil store means a fresh
// in-memory one.
func newServer(t *testing.T, cfg *config.Config, store repository.Store) (*httptest.Server, *inbox) {
	t.Helper()

	if store == nil {
		store = repository.NewMemoryStore()
	}
	mail := &inbox{codes: map[string]string{}}

	issuer, err := token.NewIssuer(token.Settings{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		ResetTTL:      cfg.ResetTokenTTL,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := service.NewAuthService(store, otp.NewEngine(store, mail, otp.Options{TTL: cfg.OTPTTL}), issuer, logger)
	cookies := session.CookiePolicy{Name: cfg.RefreshCookieName, SameSite: cfg.SameSiteMode(), MaxAge: cfg.RefreshTokenTTL}

	server := httptest.NewServer(router.New(cfg, middleware.NewSessionMiddleware(session.NewVerifier(issuer), cookies), router.Handlers{
		Auth:   handler.NewAuthHandler(authService, cookies, nil, "http://shop.local"),
		Health: handler.NewHealthHandler(nil),
	}))
	t.Cleanup(server.Close)

	return server, mail
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

type envelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		FullName   string `json:"full_name"`
		OTP        bool   `json:"otp"`
		ResetToken string `json:"reset_token"`
	} `json:"data"`
	Tokens *struct {
		AccessToken string `json:"accessToken"`
	} `json:"tokens"`
}

func postJSON(t *testing.T, client *http.Client, url string, payload any) (*http.Response, envelope) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp, decodeEnvelope(t, resp)
}

func doRequest(t *testing.T, client *http.Client, req *http.Request) (*http.Response, envelope) {
	t.Helper()

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()

	var parsed envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return parsed
}

// registerVerified walks register, request-otp and verify-otp and returns the
// account id and the access token. The client's jar holds the refresh cookie.
func registerVerified(t *testing.T, server *httptest.Server, mail *inbox, client *http.Client, email string) (string, string) {
	t.Helper()

	resp, parsed := postJSON(t, client, server.URL+"/api/v1/auth/register", map[string]string{
		"email": email, "full_name": "Ann Buyer", "password": "Valid123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := parsed.Data.ID

	resp, _ = postJSON(t, client, server.URL+"/api/v1/auth/request-otp/register", map[string]string{"id": id})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, parsed = postJSON(t, client, server.URL+"/api/v1/auth/verify-otp/register", map[string]string{"id": id, "code": mail.code(email)})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotNil(t, parsed.Tokens)

	return id, parsed.Tokens.AccessToken
}
