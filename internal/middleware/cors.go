package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows credentialed requests so the refresh cookie travels cross-site.
// A wildcard origin is not allowed together with credentials, so an empty
// list falls back to the local storefront dev server.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", AccessTokenHeader},
		MaxAge:           3600,
		AllowCredentials: true,
	})

	return handler.Handler
}
