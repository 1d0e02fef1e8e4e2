package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	ownerContextKey contextKey = "owner_id"
	OwnerHeader                = "X-User-Id"
	maxOwnerIDLength           = 128
)

// Owner reads the caller identity forwarded by the session layer in front of
// this service. Requests without it are rejected.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if ownerID == "" || len(ownerID) > maxOwnerIDLength {
			writeUnauthorized(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ownerContextKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetOwnerID(ctx context.Context) string {
	value, _ := ctx.Value(ownerContextKey).(string)
	return value
}
