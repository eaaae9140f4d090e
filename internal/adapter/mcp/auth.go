package mcp

import (
	"net/http"
	"strings"
)

// AuthMiddleware validates the Authorization header against the configured
// API key. The key may arrive as a Bearer credential or bare. An empty
// apiKey passes all requests through (auth disabled).
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found {
			token = auth
		}
		if token != apiKey {
			http.Error(w, "invalid credentials", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
