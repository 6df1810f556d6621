package model

const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusError   = "error"
)

// AuthResponse is the envelope for every auth endpoint.
type AuthResponse struct {
	Status  string           `json:"status"`
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Error   string           `json:"error,omitempty"`
	Details string           `json:"details,omitempty"`
	Data    any              `json:"data,omitempty"`
	Tokens  *AccessTokenBody `json:"tokens,omitempty"`
}
