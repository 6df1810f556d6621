package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"storefront-auth/internal/metrics"
	"storefront-auth/internal/model"
	"storefront-auth/internal/session"
)

// AccessTokenHeader carries a silently renewed access token back to the client.
const AccessTokenHeader = "X-Access-Token"

type contextKey string

const sessionContextKey contextKey = "session_outcome"

type sessionVerifier interface {
	Verify(accessToken string, refreshToken string) (session.Outcome, error)
}

type SessionMiddleware struct {
	verifier sessionVerifier
	cookies  session.CookiePolicy
}

func NewSessionMiddleware(verifier sessionVerifier, cookies session.CookiePolicy) *SessionMiddleware {
	return &SessionMiddleware{verifier: verifier, cookies: cookies}
}

// RequireSession admits requests with a valid access token, or an invalid one
// backed by a valid refresh cookie. In the second case the refresh cookie is
// re-sent and the new access token is exposed in X-Access-Token.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome, err := m.verifier.Verify(bearerToken(r), m.cookies.Read(r))
		if errors.Is(err, model.ErrNoCredential) {
			metrics.RecordSession("missing")
			writeUnauthorized(w, "NO_CREDENTIAL", "authentication required")
			return
		}
		if err != nil {
			metrics.RecordSession(string(session.ResultRejected))
			slog.DebugContext(r.Context(), "session rejected", "error", err)
			writeUnauthorized(w, "UNAUTHORIZED", "invalid or expired session")
			return
		}

		metrics.RecordSession(string(outcome.Result))
		if outcome.Renewed() {
			m.cookies.Set(w, outcome.RefreshToken)
			w.Header().Set(AccessTokenHeader, outcome.AccessToken)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, outcome)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionFromContext(ctx context.Context) (session.Outcome, bool) {
	outcome, ok := ctx.Value(sessionContextKey).(session.Outcome)
	return outcome, ok
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func writeUnauthorized(w http.ResponseWriter, code string, message string) {
	writeJSONError(w, http.StatusUnauthorized, code, message)
}
