package model

import "errors"

var (
	// Account related errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrNoCredential  = errors.New("no credential provided")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrWrongTokenUse = errors.New("token used for the wrong purpose")

	// OTP related errors
	ErrChallengeNotFound = errors.New("otp expired or not found")
	ErrChallengeInvalid  = errors.New("otp invalid")
	ErrDeliveryFailed    = errors.New("otp delivery failed")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
