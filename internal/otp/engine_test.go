package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-auth/internal/model"
	"storefront-auth/internal/repository"
)

type recordingSender struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (s *recordingSender) Send(_ context.Context, _ string, code string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.codes = append(s.codes, code)
	return nil
}

func (s *recordingSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*Engine, *repository.MemoryStore, *recordingSender, *clock, model.Account) {
	t.Helper()

	store := repository.NewMemoryStore()
	sender := &recordingSender{}
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(store, sender, Options{TTL: time.Minute, Clock: clk.Now})

	secret, err := engine.GenerateSecret("buyer@example.com")
	require.NoError(t, err)

	account, err := store.CreateAccount(context.Background(), model.Account{
		ID:        "acc-1",
		Email:     "buyer@example.com",
		Role:      model.RoleUser,
		OTPSecret: secret,
	})
	require.NoError(t, err)

	return engine, store, sender, clk, account
}

func TestRequestChallengeStoresAndSends(t *testing.T) {
	engine, store, sender, clk, account := newTestEngine(t)

	res, err := engine.RequestChallenge(context.Background(), account, model.PurposeRegister)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, clk.now.Add(time.Minute), res.ExpiresAt)

	rows := store.Challenges(account.ID)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Code, 6)
	assert.Equal(t, sender.last(), rows[0].Code)
}

func TestVerifyChallengeConsumesOnce(t *testing.T) {
	engine, store, sender, _, account := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.RequestChallenge(ctx, account, model.PurposeRegister)
	require.NoError(t, err)
	code := sender.last()

	res, err := engine.VerifyChallenge(ctx, account.ID, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, res.Outcome)

	stored, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, store.Challenges(account.ID))

	res, err = engine.VerifyChallenge(ctx, account.ID, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, "otp expired or not found", res.Message)
}

func TestVerifyChallengeWrongCodeKeepsChallenge(t *testing.T) {
	engine, store, sender, _, account := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.RequestChallenge(ctx, account, model.PurposeRegister)
	require.NoError(t, err)

	wrong := "000000"
	if sender.last() == wrong {
		wrong = "111111"
	}

	res, err := engine.VerifyChallenge(ctx, account.ID, wrong)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.Equal(t, "otp invalid", res.Message)
	assert.Len(t, store.Challenges(account.ID), 1)

	stored, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)

	res, err = engine.VerifyChallenge(ctx, account.ID, sender.last())
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, res.Outcome)
}

func TestVerifyChallengeExpired(t *testing.T) {
	engine, store, sender, clk, account := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.RequestChallenge(ctx, account, model.PurposeLogin)
	require.NoError(t, err)

	clk.Advance(61 * time.Second)

	res, err := engine.VerifyChallenge(ctx, account.ID, sender.last())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	// expired rows stay, they are simply never matched
	assert.Len(t, store.Challenges(account.ID), 1)
}

func TestVerifyChallengeOnlyNewestCounts(t *testing.T) {
	engine, _, sender, clk, account := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.RequestChallenge(ctx, account, model.PurposeLogin)
	require.NoError(t, err)
	first := sender.last()

	// next TOTP window so the second code differs
	clk.Advance(30 * time.Second)
	_, err = engine.RequestChallenge(ctx, account, model.PurposeLogin)
	require.NoError(t, err)
	second := sender.last()
	require.NotEqual(t, first, second)

	res, err := engine.VerifyChallenge(ctx, account.ID, first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, res.Outcome)

	res, err = engine.VerifyChallenge(ctx, account.ID, second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, res.Outcome)
}

func TestRequestChallengeDeclinesVerifiedRegistration(t *testing.T) {
	engine, store, _, _, account := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, store.MarkVerified(ctx, account.ID))
	account.IsVerified = true

	res, err := engine.RequestChallenge(ctx, account, model.PurposeRegister)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, res.Outcome)
	assert.False(t, res.OK())
	assert.Empty(t, store.Challenges(account.ID))

	res, err = engine.RequestChallenge(ctx, account, model.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, res.Outcome)
}

func TestRequestChallengeDeliveryFailure(t *testing.T) {
	engine, store, sender, _, account := newTestEngine(t)
	sender.err = errors.New("smtp down")

	_, err := engine.RequestChallenge(context.Background(), account, model.PurposeRegister)
	require.ErrorIs(t, err, model.ErrDeliveryFailed)
	assert.ErrorContains(t, err, "smtp down")
	assert.Empty(t, store.Challenges(account.ID))
}

func TestFailedResendKeepsDeliveredChallenge(t *testing.T) {
	engine, store, sender, clk, account := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.RequestChallenge(ctx, account, model.PurposeLogin)
	require.NoError(t, err)
	delivered := sender.last()

	// Same TOTP period, so the resend produces the same code.
	clk.Advance(5 * time.Second)
	sender.err = errors.New("smtp down")
	_, err = engine.RequestChallenge(ctx, account, model.PurposeLogin)
	require.ErrorIs(t, err, model.ErrDeliveryFailed)
	require.Len(t, store.Challenges(account.ID), 1)

	res, err := engine.VerifyChallenge(ctx, account.ID, delivered)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, res.Outcome)
}

func TestGenerateSecret(t *testing.T) {
	engine := NewEngine(repository.NewMemoryStore(), &recordingSender{}, Options{})

	a, err := engine.GenerateSecret("a@example.com")
	require.NoError(t, err)
	b, err := engine.GenerateSecret("a@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 60*time.Second, engine.TTL())
}

func TestVerifyChallengePropagatesStoreFailure(t *testing.T) {
	store := new(repository.MockStore)
	engine := NewEngine(store, &recordingSender{}, Options{})

	challenge := model.OTPChallenge{ID: 1, AccountID: "acc-1", Code: "123456"}
	store.On("FindLatestUnexpiredChallenge", mock.Anything, "acc-1", mock.Anything).Return(challenge, nil)
	store.On("MarkVerified", mock.Anything, "acc-1").Return(nil)
	store.On("DeleteChallenge", mock.Anything, "acc-1", "123456").Return(errors.New("disk full"))

	_, err := engine.VerifyChallenge(context.Background(), "acc-1", "123456")
	require.ErrorContains(t, err, "disk full")
	store.AssertExpectations(t)
}
