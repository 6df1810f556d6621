package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storefront-auth/internal/model"
	"storefront-auth/internal/service"
	"storefront-auth/internal/session"
	"storefront-auth/pkg/apierror"
)

const maxBodyBytes = 1 << 20

// authData flattens the account summary and adds the reset grant when present.
type authData struct {
	model.AccountSummary
	ResetToken string `json:"reset_token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body model.AuthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAuth renders a lifecycle result. When the flow issued tokens the
// refresh token goes into the cookie and only the access token into the body.
func writeAuth(w http.ResponseWriter, cookies session.CookiePolicy, res service.AuthResult) {
	body := model.AuthResponse{
		Status:  res.Status,
		Code:    res.Code,
		Message: res.Message,
	}

	if res.Account != nil {
		body.Data = authData{AccountSummary: *res.Account, ResetToken: res.ResetToken}
	}

	if res.Tokens != nil {
		cookies.Set(w, res.Tokens.RefreshToken)
		body.Tokens = &model.AccessTokenBody{AccessToken: res.Tokens.AccessToken}
	}

	status := res.Code
	if status == 0 {
		status = http.StatusOK
		body.Code = status
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.AuthResponse{
		Status:  model.StatusError,
		Error:   "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Error = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrAccountNotFound) || errors.Is(err, model.ErrProfileNotFound) {
		status = http.StatusNotFound
		body.Error = "NOT_FOUND"
		body.Message = "User not found"
	} else if errors.Is(err, model.ErrAccountExists) {
		status = http.StatusConflict
		body.Error = "ALREADY_EXISTS"
		body.Message = "User already exists"
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Error = "UNAUTHORIZED"
		body.Message = "Invalid credentials"
	} else if errors.Is(err, model.ErrNoCredential) {
		status = http.StatusUnauthorized
		body.Error = "NO_CREDENTIAL"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrTokenExpired) || errors.Is(err, model.ErrInvalidToken) || errors.Is(err, model.ErrWrongTokenUse) {
		status = http.StatusUnauthorized
		body.Error = "UNAUTHORIZED"
		body.Message = "Invalid or expired token"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Error = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	body.Code = status
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apierror.Validation("invalid JSON body", ""))
		return false
	}
	return true
}
