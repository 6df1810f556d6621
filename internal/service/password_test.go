package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		password string
		wantErr  string
	}{
		{"", "required"},
		{"short1", "at least 8 characters"},
		{"alllowercase1", "uppercase"},
		{"NODIGITS", "number"},
		{"12345678", "letter"},
		{"Valid123", ""},
		{"Valid123" + strings.Repeat("a", 64), ""},
		{"Valid123" + strings.Repeat("a", 65), "at most 72 bytes"},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%.20s/%d", tc.password, len(tc.password)), func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateRegistration("a@x.com", "Ann", "Valid123"))
	require.ErrorContains(t, ValidateRegistration("a@x.com", "An", "Valid123"), "at least 3")
	require.ErrorContains(t, ValidateRegistration("not-an-email", "Ann", "Valid123"), "email")
	require.ErrorContains(t, ValidateRegistration("", "Ann", "Valid123"), "email is required")
	require.ErrorContains(t, ValidateRegistration("a@x.com", "Ann", "short"), "8 characters")
}

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Valid123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Valid123", hash)

	assert.True(t, CheckPassword(hash, "Valid123"))
	assert.False(t, CheckPassword(hash, "Valid124"))
	assert.False(t, CheckPassword("", "Valid123"))
}
