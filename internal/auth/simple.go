package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Middleware guards the admin surface with a static bearer token from
// CONTENTD_API_TOKEN. Health and metrics stay open for scrapers.
func Middleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			// Expect: Authorization: Bearer <token>
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				http.Error(w, "missing API token", http.StatusUnauthorized)
				return
			}

			got := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "invalid API token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
