package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/project-atlas/readiness/internal/readiness/service"
	"github.com/project-atlas/readiness/internal/readiness/store"
	"github.com/project-atlas/readiness/pkg/httpx"
	"github.com/project-atlas/readiness/pkg/jwtx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	IdentityService *service.IdentityService
	ScoreService    *service.ScoreService
	AuditRecorder   *service.AuditRecorder
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain. The audit middleware runs inside the
	// logging one so entries see the final status code.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.auditMiddleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerScores()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{IdentityService: r.IdentityService}
	registerHandler := &RegisterHandler{IdentityService: r.IdentityService}
	deviceHandler := &DeviceLoginHandler{IdentityService: r.IdentityService}

	// Credential endpoints carry strict per-IP limits to slow brute force.
	r.Mux.Handle("POST /api/v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/v1/auth/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Device login is hit by every field device on enrol and re-enrol, so it
	// gets the moderate profile rather than the strict one.
	r.Mux.Handle("POST /api/v1/auth/device-login",
		httpx.Chain(deviceHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerScores() {
	h := &ScoresHandler{ScoreService: r.ScoreService}

	// POST /readiness - device, admin and soldier tokens may submit.
	securedSubmit := httpx.Chain(http.HandlerFunc(h.HandleSubmit),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole("device", "admin", "soldier"),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	// GET /readiness/history - device tokens are explicitly shut out: a
	// long-lived device credential must never read back score history.
	securedHistory := httpx.Chain(http.HandlerFunc(h.HandleHistory),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole("soldier", "admin"),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	// GET /readiness/users and /readiness/{user_id}/latest - any
	// authenticated principal.
	securedSummary := httpx.Chain(http.HandlerFunc(h.HandleSummary),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
	securedLatest := httpx.Chain(http.HandlerFunc(h.HandleLatest),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("POST /api/v1/readiness", securedSubmit)
	r.Mux.Handle("GET /api/v1/readiness/history", securedHistory)
	r.Mux.Handle("GET /api/v1/readiness/users", securedSummary)
	r.Mux.Handle("GET /api/v1/readiness/{user_id}/latest", securedLatest)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
