package auth

import (
	"net/http"
	"strings"

	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
)

// RequireAdmin allows the request only if RequireUser already injected role=admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := RoleFromContext(r.Context())
		if !strings.EqualFold(strings.TrimSpace(role), "admin") {
			rid := httpserver.RequestIDFromContext(r.Context())
			api.Forbidden(w, "FORBIDDEN", "Admin role required", rid)
			return
		}
		next.ServeHTTP(w, r)
	})
}
