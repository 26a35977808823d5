package httpx

import "net/http"

// RequireRole gates a route on the authenticated principal's role. The caller
// must hold one of the listed roles; anything else is forbidden (403), which
// is deliberately distinct from an invalid token (401).
func RequireRole(allowed ...string) Middleware {
	want := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[RoleFromContext(r.Context())]; !ok {
				WriteError(w, http.StatusForbidden, "forbidden", "role not permitted for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
