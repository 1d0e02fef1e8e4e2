package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth requires "Authorization: Bearer <token>" on the wrapped routes. An
// empty token disables the check for local development.
func Auth(requiredToken string) func(http.Handler) http.Handler {
	return bearer(requiredToken, false)
}

// CronSecret guards the internal trigger routes. Unlike Auth it never runs
// open: with no secret configured every request is rejected.
func CronSecret(secret string) func(http.Handler) http.Handler {
	return bearer(secret, true)
}

func bearer(expected string, required bool) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				if required {
					writeUnauthorized(w, r)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !validBearer(r.Header.Get("Authorization"), expected) {
				writeUnauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validBearer(authorization, expected string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"},"request_id":"` + GetRequestID(r.Context()) + `"}`))
}
