package handler

import (
	"context"
	"net/http"
	"time"

	"storefront-auth/internal/model"
)

type pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db pinger
}

// NewHealthHandler accepts a nil db for the in-memory store.
func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, model.AuthResponse{
				Status:  model.StatusError,
				Code:    http.StatusServiceUnavailable,
				Message: "database unavailable",
				Error:   "UNAVAILABLE",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, model.AuthResponse{Status: model.StatusSuccess, Code: http.StatusOK, Message: "ok"})
}
