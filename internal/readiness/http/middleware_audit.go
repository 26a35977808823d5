package http

import (
	"net/http"

	"github.com/project-atlas/readiness/internal/readiness/service"
	"github.com/project-atlas/readiness/pkg/httpx"
)

// mutating reports whether a request method changes state and therefore
// deserves an audit entry. Reads are deliberately not audited.
func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// auditMiddleware records every mutating request after it completes. The
// recorder is read off the Router per request so wiring order at startup does
// not matter; with no recorder configured the middleware is a no-op.
func (r *Router) auditMiddleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.AuditRecorder == nil || !mutating(req.Method) {
				next.ServeHTTP(w, req)
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, req)

			token, _ := httpx.BearerToken(req)
			r.AuditRecorder.Record(service.RequestInfo{
				BearerToken: token,
				Method:      req.Method,
				Path:        req.URL.Path,
				IPAddress:   httpx.IPKeyExtractor(req),
				StatusCode:  sw.status,
				UserAgent:   req.UserAgent(),
			})
		})
	}
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer to http.ResponseController, keeping
// Flush and Hijack reachable through the middleware.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
