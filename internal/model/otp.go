package model

import "fmt"

// Purpose is the flow an OTP challenge was requested for.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposeLogin         Purpose = "login"
	PurposePasswordReset Purpose = "password_reset"
)

func ParsePurpose(raw string) (Purpose, error) {
	switch raw {
	case "register":
		return PurposeRegister, nil
	case "login":
		return PurposeLogin, nil
	case "forgot-password", "password_reset":
		return PurposePasswordReset, nil
	default:
		return "", fmt.Errorf("unknown otp purpose %q: %w", raw, ErrInvalidInput)
	}
}
