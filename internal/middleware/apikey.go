// AngelaMos | 2026
// apikey.go

package middleware

import (
	"net/http"

	"github.com/carterperez-dev/bloodlink/internal/core"
)

const AdminKeyHeader = "X-Admin-Key"

// RequireAPIKey guards operator endpoints. An empty key disables the
// endpoints entirely rather than leaving them open.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	keyHash := core.HashToken(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := r.Header.Get(AdminKeyHeader)
			if key == "" || supplied == "" ||
				!core.CompareTokenHash(supplied, keyHash) {
				core.JSONError(w, core.ForbiddenError("invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
