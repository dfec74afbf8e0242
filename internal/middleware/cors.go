package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the configured admin and storefront origins. An empty list
// allows any origin. Tokens travel in the Authorization header, so
// credentialed requests are never allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length", "X-Request-ID", "X-Cache"},
		MaxAge:           3600,
		AllowCredentials: false,
	})

	return handler.Handler
}
