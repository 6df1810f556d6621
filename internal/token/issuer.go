// Package token mints and verifies the signed bearer credentials used by the
// storefront: short-lived access tokens, long-lived refresh tokens and the
// single-purpose password reset grant.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront-auth/internal/model"
)

const (
	TypeAccess        = "access"
	TypeRefresh       = "refresh"
	TypePasswordReset = "password_reset"
	TypeGoogleSignup  = "google_signup"
)

type Settings struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	now           func() time.Time
}

// tokenClaims keeps the subject fields flat in the payload next to typ, iat and exp.
type tokenClaims struct {
	model.Claims
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func NewIssuer(settings Settings) (*Issuer, error) {
	if strings.TrimSpace(settings.AccessSecret) == "" {
		return nil, errors.New("access signing secret is required")
	}
	if strings.TrimSpace(settings.RefreshSecret) == "" {
		return nil, errors.New("refresh signing secret is required")
	}
	if settings.AccessSecret == settings.RefreshSecret {
		return nil, errors.New("access and refresh signing secrets must differ")
	}
	if settings.AccessTTL <= 0 || settings.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if settings.ResetTTL <= 0 {
		settings.ResetTTL = 10 * time.Minute
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}

	return &Issuer{
		accessSecret:  []byte(settings.AccessSecret),
		refreshSecret: []byte(settings.RefreshSecret),
		accessTTL:     settings.AccessTTL,
		refreshTTL:    settings.RefreshTTL,
		resetTTL:      settings.ResetTTL,
		now:           settings.Clock,
	}, nil
}

func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

func (i *Issuer) IssueAccess(claims model.Claims) (string, error) {
	return i.sign(claims, TypeAccess, i.accessTTL, i.accessSecret)
}

func (i *Issuer) IssueRefresh(claims model.Claims) (string, error) {
	return i.sign(claims, TypeRefresh, i.refreshTTL, i.refreshSecret)
}

func (i *Issuer) IssuePair(claims model.Claims) (model.TokenPair, error) {
	access, err := i.IssueAccess(claims)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := i.IssueRefresh(claims)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) VerifyAccess(tokenString string) (model.Claims, error) {
	return i.verify(tokenString, TypeAccess, i.accessSecret)
}

func (i *Issuer) VerifyRefresh(tokenString string) (model.Claims, error) {
	return i.verify(tokenString, TypeRefresh, i.refreshSecret)
}

// IssueResetGrant proves that a password reset OTP was consumed for accountID.
func (i *Issuer) IssueResetGrant(accountID string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("reset grant subject: %w", model.ErrInvalidInput)
	}
	return i.sign(model.Claims{ID: accountID}, TypePasswordReset, i.resetTTL, i.refreshSecret)
}

func (i *Issuer) VerifyResetGrant(tokenString string) (string, error) {
	claims, err := i.verify(tokenString, TypePasswordReset, i.refreshSecret)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// IssueSignupGrant carries a Google identity that has no local account yet
// from the OAuth callback to the set-password step.
func (i *Issuer) IssueSignupGrant(identity model.GoogleIdentity) (string, error) {
	if identity.Email == "" {
		return "", fmt.Errorf("signup grant email: %w", model.ErrInvalidInput)
	}
	claims := model.Claims{
		ID:       identity.Email,
		Email:    identity.Email,
		FullName: identity.Name,
		Avatar:   identity.Picture,
	}
	return i.sign(claims, TypeGoogleSignup, i.resetTTL, i.refreshSecret)
}

func (i *Issuer) VerifySignupGrant(tokenString string) (model.GoogleIdentity, error) {
	claims, err := i.verify(tokenString, TypeGoogleSignup, i.refreshSecret)
	if err != nil {
		return model.GoogleIdentity{}, err
	}
	return model.GoogleIdentity{Email: claims.Email, Name: claims.FullName, Picture: claims.Avatar}, nil
}

func (i *Issuer) sign(claims model.Claims, typ string, ttl time.Duration, secret []byte) (string, error) {
	if claims.ID == "" {
		return "", fmt.Errorf("token subject id is required: %w", model.ErrInvalidInput)
	}

	now := i.now()
	payload := tokenClaims{
		Claims: claims,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(secret)
}

func (i *Issuer) verify(tokenString string, expectedType string, secret []byte) (model.Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return model.Claims{}, model.ErrNoCredential
	}

	parsed := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Claims{}, fmt.Errorf("%w: %w", model.ErrTokenExpired, err)
		}
		return model.Claims{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	if parsed.Type != expectedType {
		return model.Claims{}, fmt.Errorf("%w: got %q, want %q", model.ErrWrongTokenUse, parsed.Type, expectedType)
	}

	if parsed.Claims.ID == "" {
		return model.Claims{}, fmt.Errorf("%w: missing subject", model.ErrInvalidToken)
	}

	return parsed.Claims, nil
}
