// Package session decides, per request, whether the presented access and
// refresh credentials authenticate the caller, renewing the access token from
// a valid refresh token when needed.
package session

import (
	"errors"
	"fmt"

	"storefront-auth/internal/model"
)

type Result string

const (
	ResultOK       Result = "ok"
	ResultRefresh  Result = "refresh"
	ResultRejected Result = "rejected"
)

type tokenService interface {
	VerifyAccess(token string) (model.Claims, error)
	VerifyRefresh(token string) (model.Claims, error)
	IssueAccess(claims model.Claims) (string, error)
}

// Outcome is attached to the request once verification has run.
// AccessToken is only set for ResultRefresh; RefreshToken is echoed back
// unchanged so the caller can re-set the cookie.
type Outcome struct {
	Result       Result
	Claims       model.Claims
	AccessToken  string
	RefreshToken string
}

func (o Outcome) Renewed() bool {
	return o.Result == ResultRefresh
}

type Verifier struct {
	tokens tokenService
}

func NewVerifier(tokens tokenService) *Verifier {
	return &Verifier{tokens: tokens}
}

// Verify never consults the credential store: signed claims are trusted until
// they expire, so a leaked access token stays valid for its full lifetime.
func (v *Verifier) Verify(accessToken string, refreshToken string) (Outcome, error) {
	if accessToken == "" && refreshToken == "" {
		return Outcome{Result: ResultRejected}, model.ErrNoCredential
	}

	var accessErr error
	if accessToken != "" {
		claims, err := v.tokens.VerifyAccess(accessToken)
		if err == nil {
			return Outcome{Result: ResultOK, Claims: claims}, nil
		}
		accessErr = err
	}

	if refreshToken == "" {
		return Outcome{Result: ResultRejected}, fmt.Errorf("access rejected: %w", accessErr)
	}

	claims, err := v.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if accessErr != nil {
			return Outcome{Result: ResultRejected}, fmt.Errorf("refresh rejected: %w", errors.Join(err, accessErr))
		}
		return Outcome{Result: ResultRejected}, fmt.Errorf("refresh rejected: %w", err)
	}

	renewed, err := v.tokens.IssueAccess(claims)
	if err != nil {
		return Outcome{Result: ResultRejected}, fmt.Errorf("renew access token: %w", err)
	}

	return Outcome{
		Result:       ResultRefresh,
		Claims:       claims,
		AccessToken:  renewed,
		RefreshToken: refreshToken,
	}, nil
}
