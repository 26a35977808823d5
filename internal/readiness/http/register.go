package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/project-atlas/readiness/internal/readiness/service"
	"github.com/project-atlas/readiness/pkg/httpx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

// RegisterHandler serves POST /api/v1/auth/register.
type RegisterHandler struct {
	IdentityService *service.IdentityService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	grant, err := h.IdentityService.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			httpx.WriteError(w, http.StatusBadRequest, "email_already_registered", "an account with this email already exists")
			return
		}
		log.Error("registration failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, grant)
}
