package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/formbricks/ragcore/internal/api/response"
)

// Auth validates the Authorization header against the single configured API
// key. The admin surface (INSPECT SESSION, FEEDBACK, CHUNK EDIT, WORKFLOW
// SEARCH, STATS) sits behind this; ASK is intentionally public.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.RespondUnauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				response.RespondUnauthorized(w, "Invalid Authorization header format. Expected: Bearer <api-key>")
				return
			}

			provided := parts[1]
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				response.RespondUnauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
