// Package otp issues and consumes short-lived one-time codes bound to an
// account. Expiry is evaluated when a code is looked up; nothing sweeps the
// table in the background.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"storefront-auth/internal/mailer"
	"storefront-auth/internal/model"
	"storefront-auth/internal/repository"
)

type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeDeclined Outcome = "declined"
	OutcomeVerified Outcome = "verified"
	OutcomeNotFound Outcome = "not_found"
	OutcomeInvalid  Outcome = "invalid"
)

// Result is the soft answer of a request or verification. Expected failures
// (wrong code, expired code, already verified) are Results, not errors.
type Result struct {
	Outcome   Outcome
	Message   string
	ExpiresAt time.Time
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSent || r.Outcome == OutcomeVerified
}

type Options struct {
	TTL    time.Duration
	Period uint
	Digits otp.Digits
	Issuer string
	Clock  func() time.Time
}

type Engine struct {
	store  repository.Store
	sender mailer.Sender
	opts   Options
}

func NewEngine(store repository.Store, sender mailer.Sender, opts Options) *Engine {
	if opts.TTL <= 0 {
		opts.TTL = 60 * time.Second
	}
	if opts.Period == 0 {
		opts.Period = 30
	}
	if opts.Digits == 0 {
		opts.Digits = otp.DigitsSix
	}
	if opts.Issuer == "" {
		opts.Issuer = "Storefront"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Engine{store: store, sender: sender, opts: opts}
}

func (e *Engine) TTL() time.Duration {
	return e.opts.TTL
}

// GenerateSecret returns a fresh base32 secret for a new account.
func (e *Engine) GenerateSecret(accountEmail string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.opts.Issuer,
		AccountName: accountEmail,
		Period:      e.opts.Period,
		Digits:      e.opts.Digits,
	})
	if err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	return key.Secret(), nil
}

// RequestChallenge stores a new code for account and hands it to the sender.
// If delivery fails only the row just inserted is removed again. Earlier
// delivered rows can carry the same code within one TOTP period and stay valid.
func (e *Engine) RequestChallenge(ctx context.Context, account model.Account, purpose model.Purpose) (Result, error) {
	if purpose == model.PurposeRegister && account.IsVerified {
		return Result{Outcome: OutcomeDeclined, Message: "account already verified"}, nil
	}

	secret := account.OTPSecret
	if secret == "" {
		generated, err := e.GenerateSecret(account.Email)
		if err != nil {
			return Result{}, err
		}
		secret = generated
	}

	now := e.opts.Clock().UTC()
	code, err := totp.GenerateCodeCustom(secret, now, totp.ValidateOpts{
		Period:    e.opts.Period,
		Digits:    e.opts.Digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate otp code: %w", err)
	}

	challenge, err := e.store.InsertChallenge(ctx, model.OTPChallenge{
		AccountID: account.ID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(e.opts.TTL),
	})
	if err != nil {
		return Result{}, fmt.Errorf("store otp challenge: %w", err)
	}

	if err := e.sender.Send(ctx, account.Email, code, e.opts.TTL); err != nil {
		if delErr := e.store.DeleteChallengeByID(context.WithoutCancel(ctx), challenge.ID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("discard undelivered otp: %w", delErr))
		}
		return Result{}, fmt.Errorf("%w: %w", model.ErrDeliveryFailed, err)
	}

	return Result{Outcome: OutcomeSent, Message: "otp sent", ExpiresAt: challenge.ExpiresAt}, nil
}

// VerifyChallenge checks code against the newest unexpired challenge. A match
// marks the account verified and deletes the matched code in one transaction.
// A mismatch leaves the challenge in place.
func (e *Engine) VerifyChallenge(ctx context.Context, accountID string, code string) (Result, error) {
	now := e.opts.Clock().UTC()

	var result Result
	err := e.store.WithinTx(ctx, func(tx repository.Store) error {
		latest, err := tx.FindLatestUnexpiredChallenge(ctx, accountID, now)
		if errors.Is(err, model.ErrChallengeNotFound) {
			result = Result{Outcome: OutcomeNotFound, Message: model.ErrChallengeNotFound.Error()}
			return nil
		}
		if err != nil {
			return fmt.Errorf("find otp challenge: %w", err)
		}

		if latest.Code != code {
			result = Result{Outcome: OutcomeInvalid, Message: model.ErrChallengeInvalid.Error()}
			return nil
		}

		if err := tx.MarkVerified(ctx, accountID); err != nil {
			return err
		}
		if err := tx.DeleteChallenge(ctx, accountID, code); err != nil {
			return fmt.Errorf("consume otp challenge: %w", err)
		}

		result = Result{Outcome: OutcomeVerified, Message: "account verified"}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}
