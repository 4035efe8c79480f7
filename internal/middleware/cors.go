package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// OpenCORS разрешает вызовы с любого источника. Используется для публичной точки регистрации.
func OpenCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:         300,
	})
}
