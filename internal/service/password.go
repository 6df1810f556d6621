package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxPasswordBytes is the most bcrypt accepts.
const maxPasswordBytes = 72

// ValidatePassword enforces the password policy: 8 characters to 72 bytes with
// a digit, a letter and an uppercase letter.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > maxPasswordBytes {
		return errors.New("password must be at most 72 bytes")
	}

	var hasDigit, hasLetter, hasUpper bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
			hasLetter, hasUpper = true, true
		case r >= 'a' && r <= 'z':
			hasLetter = true
		}
	}

	if !hasDigit {
		return errors.New("password must contain at least one number")
	}
	if !hasLetter {
		return errors.New("password must contain at least one letter")
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	return nil
}

func ValidateRegistration(email string, fullName string, password string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return errors.New("full name is required")
	}
	if len([]rune(fullName)) < 3 {
		return errors.New("full name must be at least 3 characters")
	}
	if strings.IndexFunc(fullName, unicode.IsControl) >= 0 {
		return errors.New("full name contains invalid characters")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}

	return ValidatePassword(password)
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash string, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
