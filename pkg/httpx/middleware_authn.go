package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/project-atlas/readiness/pkg/jwtx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

// AuthnMiddleware verifies the bearer token and injects the principal's
// identity into the request context. Missing, expired or malformed tokens are
// all unauthenticated (401); a verified token without a user_id claim is
// rejected as invalid credentials rather than let an anonymous principal
// through.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if claims.UserID == "" {
				writeBearerError(w, "invalid credentials")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")), true
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.UserID)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthenticated", desc)
}
