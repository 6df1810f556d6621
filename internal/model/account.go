package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"is_verified"`
	Role         string    `json:"role"`
	OTPSecret    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Profile struct {
	AccountID string    `json:"account_id"`
	FullName  string    `json:"full_name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OTPChallenge rows are append-only. Only the newest unexpired row for an
// account is honoured; consumed rows are deleted.
type OTPChallenge struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Code      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c OTPChallenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// AccountSummary is the profile-bearing payload returned by every auth flow.
type AccountSummary struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	OTP      bool   `json:"otp,omitempty"`
}

func NewAccountSummary(account Account, profile Profile) AccountSummary {
	return AccountSummary{
		ID:       account.ID,
		FullName: profile.FullName,
		Email:    account.Email,
		Avatar:   profile.Avatar,
	}
}

// GoogleIdentity is the verified identity returned by the Google exchange.
type GoogleIdentity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}
