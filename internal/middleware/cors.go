package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows any origin and exposes the token headers so browser clients
// can read freshly issued credentials.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions,
			http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
		AllowedHeaders: []string{
			"Origin", "X-Requested-With", "Content-Type", "Accept",
			AccessTokenHeader, RefreshTokenHeader, UserIDHeader,
		},
		ExposedHeaders: []string{AccessTokenHeader, RefreshTokenHeader},
		MaxAge:         300,
	})
}
