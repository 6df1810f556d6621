package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"storefront-auth/internal/model"
)

// MockStore runs WithinTx callbacks against itself.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindAccountByID(ctx context.Context, id string) (model.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockStore) FindAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockStore) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockStore) CreateProfile(ctx context.Context, accountID string, fullName string) (model.Profile, error) {
	args := m.Called(ctx, accountID, fullName)
	return args.Get(0).(model.Profile), args.Error(1)
}

func (m *MockStore) FindProfile(ctx context.Context, accountID string) (model.Profile, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(model.Profile), args.Error(1)
}

func (m *MockStore) UpdateAccountSecret(ctx context.Context, id string, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockStore) MarkVerified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) InsertChallenge(ctx context.Context, challenge model.OTPChallenge) (model.OTPChallenge, error) {
	args := m.Called(ctx, challenge)
	return args.Get(0).(model.OTPChallenge), args.Error(1)
}

func (m *MockStore) FindLatestUnexpiredChallenge(ctx context.Context, accountID string, now time.Time) (model.OTPChallenge, error) {
	args := m.Called(ctx, accountID, now)
	return args.Get(0).(model.OTPChallenge), args.Error(1)
}

func (m *MockStore) DeleteChallenge(ctx context.Context, accountID string, code string) error {
	args := m.Called(ctx, accountID, code)
	return args.Error(0)
}

func (m *MockStore) DeleteChallengeByID(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) WithinTx(_ context.Context, fn func(tx Store) error) error {
	return fn(m)
}
