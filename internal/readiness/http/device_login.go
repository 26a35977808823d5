package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/project-atlas/readiness/internal/readiness/service"
	"github.com/project-atlas/readiness/pkg/httpx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

// DeviceLoginHandler serves POST /api/v1/auth/device-login.
//
// This is the one flow designed never to fail for identity reasons: unknown
// devices and users are provisioned on the fly. The only rejection is an
// explicitly unapproved device.
type DeviceLoginHandler struct {
	IdentityService *service.IdentityService
}

type deviceLoginRequest struct {
	DeviceID string `json:"device_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (h *DeviceLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req deviceLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.DeviceID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "device_id is required")
		return
	}

	grant, err := h.IdentityService.DeviceLogin(ctx, req.DeviceID, req.Email, req.FullName)
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotApproved) {
			httpx.WriteError(w, http.StatusForbidden, "device_not_approved", "this device has been quarantined by an administrator")
			return
		}
		log.Error("device login failed", "device_id", req.DeviceID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, grant)
}
