package middleware

import (
	"encoding/json"
	"net/http"

	"storefront-auth/internal/model"
)

func jsonEncode(w http.ResponseWriter, value any) error {
	return json.NewEncoder(w).Encode(value)
}

func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.AuthResponse{
		Status:  model.StatusError,
		Code:    status,
		Message: message,
		Error:   code,
	})
}
