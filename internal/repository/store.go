// Package repository is the credential store behind the auth core: accounts,
// profiles and OTP challenges.
package repository

import (
	"context"
	"time"

	"storefront-auth/internal/model"
)

// Store is the narrow contract the auth core reads and writes through.
// Lookups that find nothing return errors wrapping the model sentinels
// (ErrAccountNotFound, ErrProfileNotFound, ErrChallengeNotFound).
type Store interface {
	FindAccountByID(ctx context.Context, id string) (model.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (model.Account, error)
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error)
	CreateProfile(ctx context.Context, accountID string, fullName string) (model.Profile, error)
	FindProfile(ctx context.Context, accountID string) (model.Profile, error)
	UpdateAccountSecret(ctx context.Context, id string, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error

	InsertChallenge(ctx context.Context, challenge model.OTPChallenge) (model.OTPChallenge, error)
	FindLatestUnexpiredChallenge(ctx context.Context, accountID string, now time.Time) (model.OTPChallenge, error)
	DeleteChallenge(ctx context.Context, accountID string, code string) error
	DeleteChallengeByID(ctx context.Context, id int64) error

	// WithinTx runs fn against a Store whose writes commit together or not at
	// all. Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
