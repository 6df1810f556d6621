//go:build integration

package integration

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterVerifyAndRefreshFromCookie(t *testing.T) {
	server, mail := newServer(t, testConfig(), nil)
	client := newClient(t)

	_, accessToken := registerVerified(t, server, mail, client, "ann@example.com")
	require.NotEmpty(t, accessToken)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	require.Len(t, client.Jar.Cookies(serverURL), 1)

	// Only the cookie: the session is renewed silently.
	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/auth/me", nil)
	require.NoError(t, err)
	resp, parsed := doRequest(t, client, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ann@example.com", parsed.Data.Email)
	require.NotNil(t, parsed.Tokens)
	require.Equal(t, parsed.Tokens.AccessToken, resp.Header.Get("X-Access-Token"))

	req, err = http.NewRequest(http.MethodPost, server.URL+"/api/v1/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, _ = doRequest(t, client, req)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, client.Jar.Cookies(serverURL))

	req, err = http.NewRequest(http.MethodGet, server.URL+"/api/v1/auth/refresh", nil)
	require.NoError(t, err)
	resp, parsed = doRequest(t, client, req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "NO_CREDENTIAL", parsed.Error)
}

func TestLoginWithOTPStepUp(t *testing.T) {
	server, mail := newServer(t, testConfig(), nil)
	id, _ := registerVerified(t, server, mail, newClient(t), "ann@example.com")

	client := newClient(t)
	resp, parsed := postJSON(t, client, server.URL+"/api/v1/auth/login", map[string]string{"email": "ann@example.com", "password": "Valid123"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotNil(t, parsed.Tokens)

	resp, parsed = postJSON(t, client, server.URL+"/api/v1/auth/request-otp/login", map[string]string{"id": id})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.True(t, parsed.Data.OTP)

	resp, parsed = postJSON(t, client, server.URL+"/api/v1/auth/verify-otp/login", map[string]string{"id": id, "code": mail.code("ann@example.com")})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "success", parsed.Status)
	require.NotNil(t, parsed.Tokens)

	// The challenge was consumed.
	resp, parsed = postJSON(t, client, server.URL+"/api/v1/auth/verify-otp/login", map[string]string{"id": id, "code": mail.code("ann@example.com")})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "otp expired or not found", parsed.Message)
}

func TestForgotPasswordReplacesSecret(t *testing.T) {
	server, mail := newServer(t, testConfig(), nil)
	id, _ := registerVerified(t, server, mail, newClient(t), "ann@example.com")

	client := newClient(t)
	resp, _ := postJSON(t, client, server.URL+"/api/v1/auth/forgot-password", map[string]string{"email": "ann@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, client, server.URL+"/api/v1/auth/request-otp/forgot-password", map[string]string{"email": "ann@example.com"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, parsed := postJSON(t, client, server.URL+"/api/v1/auth/verify-otp/forgot-password", map[string]string{"id": id, "code": mail.code("ann@example.com")})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, parsed.Data.ResetToken)

	resp, _ = postJSON(t, client, server.URL+"/api/v1/auth/set-password/forgot-password", map[string]string{
		"reset_token": parsed.Data.ResetToken, "new_password": "Changed123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, client, server.URL+"/api/v1/auth/login", map[string]string{"email": "ann@example.com", "password": "Valid123"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, client, server.URL+"/api/v1/auth/login", map[string]string{"email": "ann@example.com", "password": "Changed123"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestGoogleRoutesDisabled(t *testing.T) {
	server, _ := newServer(t, testConfig(), nil)

	client := newClient(t)
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/auth/google", nil)
	require.NoError(t, err)
	resp, parsed := doRequest(t, client, req)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "UNAVAILABLE", parsed.Error)
}
