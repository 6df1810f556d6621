//go:build integration

package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storefront-auth/internal/database"
	"storefront-auth/internal/model"
	"storefront-auth/internal/repository"
)

// Runs only when TEST_DATABASE_URL points at a disposable PostgreSQL database.
func newPostgresStore(t *testing.T) *repository.PostgresStore {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Health(ctx))

	return repository.NewPostgresStore(db.Pool)
}

func TestPostgresChallengeLifecycle(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	account, err := store.CreateAccount(ctx, model.Account{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		OTPSecret:    "secret",
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	_, err = store.CreateAccount(ctx, model.Account{ID: uuid.NewString(), Email: account.Email, Role: model.RoleUser})
	require.ErrorIs(t, err, model.ErrAccountExists)

	_, err = store.InsertChallenge(ctx, model.OTPChallenge{AccountID: account.ID, Code: "111111", CreatedAt: now.Add(-time.Second), ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	_, err = store.InsertChallenge(ctx, model.OTPChallenge{AccountID: account.ID, Code: "222222", CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)

	latest, err := store.FindLatestUnexpiredChallenge(ctx, account.ID, now)
	require.NoError(t, err)
	require.Equal(t, "222222", latest.Code)

	_, err = store.FindLatestUnexpiredChallenge(ctx, account.ID, now.Add(2*time.Minute))
	require.ErrorIs(t, err, model.ErrChallengeNotFound)

	err = store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.MarkVerified(ctx, account.ID); err != nil {
			return err
		}
		return tx.DeleteChallenge(ctx, account.ID, "222222")
	})
	require.NoError(t, err)

	verified, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, verified.IsVerified)
}

func TestPostgresRegistrationFlow(t *testing.T) {
	store := newPostgresStore(t)
	server, mail := newServer(t, testConfig(), store)

	email := uuid.NewString() + "@example.com"
	id, accessToken := registerVerified(t, server, mail, newClient(t), email)
	require.NotEmpty(t, accessToken)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, parsed := doRequest(t, newClient(t), req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, id, parsed.Data.ID)
}

func TestPostgresMalformedIDIsNotFound(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	_, err := store.FindAccountByID(ctx, "abc")
	require.ErrorIs(t, err, model.ErrAccountNotFound)
	_, err = store.FindProfile(ctx, "abc")
	require.ErrorIs(t, err, model.ErrProfileNotFound)

	server, _ := newServer(t, testConfig(), store)
	resp, parsed := postJSON(t, newClient(t), server.URL+"/api/v1/auth/request-otp/login", map[string]string{"id": "abc"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", parsed.Error)
}

func TestPostgresDeleteChallengeByID(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account, err := store.CreateAccount(ctx, model.Account{
		ID: uuid.NewString(), Email: uuid.NewString() + "@example.com", Role: model.RoleUser, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	delivered, err := store.InsertChallenge(ctx, model.OTPChallenge{AccountID: account.ID, Code: "333333", CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	undelivered, err := store.InsertChallenge(ctx, model.OTPChallenge{AccountID: account.ID, Code: "333333", CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)

	require.NoError(t, store.DeleteChallengeByID(ctx, undelivered.ID))

	latest, err := store.FindLatestUnexpiredChallenge(ctx, account.ID, now)
	require.NoError(t, err)
	require.Equal(t, delivered.ID, latest.ID)
}
