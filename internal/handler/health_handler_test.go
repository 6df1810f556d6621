package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-auth/internal/session"
)

type stubPinger struct{ err error }

func (p stubPinger) Health(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		db     pinger
		status int
	}{
		{name: "memory store", db: nil, status: http.StatusOK},
		{name: "database up", db: stubPinger{}, status: http.StatusOK},
		{name: "database down", db: stubPinger{err: errors.New("connection refused")}, status: http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tc.db).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestGoogleRoutesUnavailableWithoutProvider(t *testing.T) {
	h := NewAuthHandler(nil, session.CookiePolicy{}, nil, "http://shop.local")

	rec := httptest.NewRecorder()
	h.GoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?code=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
