package apierror

import (
	"fmt"
	"net/http"
)

// Kind classifies an APIError independently of its HTTP status.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindCredentialMismatch Kind = "credential_mismatch"
	KindConflict           Kind = "conflict"
	KindNotFound           Kind = "not_found"
	KindUnavailable        Kind = "unavailable"
	KindInternal           Kind = "internal"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Kind       Kind   `json:"-"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap attaches the underlying cause so errors.Is still sees sentinels.
func (e *APIError) Wrap(cause error) *APIError {
	e.cause = cause
	return e
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, Kind: kindForStatus(status), HTTPStatus: status}
}

func Validation(message string, details string) *APIError {
	return New("BAD_REQUEST", message, details, http.StatusBadRequest)
}

func CredentialMismatch(message string) *APIError {
	return New("UNAUTHORIZED", message, "", http.StatusUnauthorized)
}

func Conflict(message string, details string) *APIError {
	return New("ALREADY_EXISTS", message, details, http.StatusConflict)
}

func NotFound(message string, details string) *APIError {
	return New("NOT_FOUND", message, details, http.StatusNotFound)
}

func Unavailable(message string) *APIError {
	return New("UNAVAILABLE", message, "", http.StatusServiceUnavailable)
}

func Internal(message string) *APIError {
	return New("INTERNAL_ERROR", message, "", http.StatusInternalServerError)
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindCredentialMismatch
	case http.StatusConflict:
		return KindConflict
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return KindUnavailable
	default:
		return KindInternal
	}
}
