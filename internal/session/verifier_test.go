package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-auth/internal/model"
	"storefront-auth/internal/token"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newVerifier(t *testing.T) (*Verifier, *token.Issuer, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)}
	issuer, err := token.NewIssuer(token.Settings{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    168 * time.Hour,
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	return NewVerifier(issuer), issuer, clock
}

var annClaims = model.Claims{
	ID:       "acc-1",
	Avatar:   "",
	Email:    "a@x.com",
	FullName: "Ann",
	Role:     model.RoleUser,
}

func TestVerifyRejectsMissingCredentials(t *testing.T) {
	t.Parallel()

	verifier, _, _ := newVerifier(t)

	outcome, err := verifier.Verify("", "")
	require.ErrorIs(t, err, model.ErrNoCredential)
	assert.Equal(t, ResultRejected, outcome.Result)
	assert.Empty(t, outcome.Claims)
}

func TestVerifyAcceptsValidAccessToken(t *testing.T) {
	t.Parallel()

	verifier, issuer, _ := newVerifier(t)
	pair, err := issuer.IssuePair(annClaims)
	require.NoError(t, err)

	outcome, err := verifier.Verify(pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, ResultOK, outcome.Result)
	assert.Equal(t, annClaims, outcome.Claims)
	assert.Empty(t, outcome.AccessToken, "no renewal when the access token is valid")
	assert.False(t, outcome.Renewed())
}

func TestVerifyRenewsFromRefreshToken(t *testing.T) {
	t.Parallel()

	verifier, issuer, clock := newVerifier(t)
	pair, err := issuer.IssuePair(annClaims)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour)

	for name, access := range map[string]string{
		"expired access": pair.AccessToken,
		"missing access": "",
		"garbage access": "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			outcome, err := verifier.Verify(access, pair.RefreshToken)
			require.NoError(t, err)
			assert.Equal(t, ResultRefresh, outcome.Result)
			assert.True(t, outcome.Renewed())
			assert.Equal(t, pair.RefreshToken, outcome.RefreshToken, "refresh token is re-sent, not rotated")
			require.NotEmpty(t, outcome.AccessToken)

			renewed, err := issuer.VerifyAccess(outcome.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, annClaims, renewed)
			assert.Equal(t, annClaims, outcome.Claims)
		})
	}
}

func TestVerifyRejectsWhenBothInvalid(t *testing.T) {
	t.Parallel()

	verifier, issuer, clock := newVerifier(t)
	pair, err := issuer.IssuePair(annClaims)
	require.NoError(t, err)

	clock.now = clock.now.Add(169 * time.Hour)

	cases := map[string][2]string{
		"both expired":        {pair.AccessToken, pair.RefreshToken},
		"expired access only": {pair.AccessToken, ""},
		"refresh as access":   {"", pair.AccessToken},
	}

	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			outcome, err := verifier.Verify(creds[0], creds[1])
			require.Error(t, err)
			assert.Equal(t, ResultRejected, outcome.Result)
			assert.Empty(t, outcome.Claims)
			assert.Empty(t, outcome.AccessToken)
		})
	}
}

func TestCookiePolicy(t *testing.T) {
	t.Parallel()

	policy := CookiePolicy{Name: "refresh-token", Secure: true, SameSite: http.SameSiteLaxMode, MaxAge: 168 * time.Hour}

	rec := httptest.NewRecorder()
	policy.Set(rec, "tok")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "refresh-token", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 168*3600, c.MaxAge)
	assert.Equal(t, "/", c.Path)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "refresh-token", Value: "tok"})
	assert.Equal(t, "tok", policy.Read(req))

	cleared := httptest.NewRecorder()
	policy.Clear(cleared)
	require.Len(t, cleared.Result().Cookies(), 1)
	assert.Equal(t, -1, cleared.Result().Cookies()[0].MaxAge)
}
