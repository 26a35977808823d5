package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
	"github.com/project-atlas/readiness/internal/readiness/policy"
	"github.com/project-atlas/readiness/internal/readiness/service"
	"github.com/project-atlas/readiness/pkg/httpx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

// ScoresHandler serves the readiness score endpoints.
type ScoresHandler struct {
	ScoreService *service.ScoreService
}

type submitScoreRequest struct {
	Timestamp    time.Time      `json:"timestamp"`
	OverallScore float64        `json:"overall_score"`
	Confidence   string         `json:"confidence"`
	Scores       map[string]any `json:"scores"`
}

type scoreResponse struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Scores       map[string]any `json:"scores"`
	OverallScore float64        `json:"overall_score"`
	Confidence   string         `json:"confidence"`
	CreatedAt    time.Time      `json:"created_at"`
}

func toScoreResponse(s domain.ReadinessScore) scoreResponse {
	return scoreResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		Timestamp:    s.Timestamp,
		Scores:       s.Breakdown,
		OverallScore: s.OverallScore,
		Confidence:   s.Confidence,
		CreatedAt:    s.CreatedAt,
	}
}

type summaryRow struct {
	UserEmail        string    `json:"user_email"`
	LatestScore      float64   `json:"latest_score"`
	LatestSubmission time.Time `json:"latest_submission"`
}

// HandleSubmit serves POST /api/v1/readiness. The submission is attributed to
// the token's user, never to anything in the body.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromContext(ctx)

	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Timestamp.IsZero() {
		// Devices with drifted clocks sometimes omit the field; fall back to
		// receipt time rather than reject the bundle.
		req.Timestamp = time.Now().UTC()
	}

	score, err := h.ScoreService.Submit(ctx, userID, service.ScoreSubmission{
		Timestamp:    req.Timestamp,
		OverallScore: req.OverallScore,
		Confidence:   req.Confidence,
		Breakdown:    req.Scores,
	})
	if err != nil {
		var rejected *policy.RejectedKeyError
		if errors.As(err, &rejected) {
			httpx.WriteError(w, http.StatusForbidden, "forbidden_payload_key",
				"raw data key not accepted: "+rejected.Key)
			return
		}
		log.Error("score submission failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toScoreResponse(score))
}

// HandleHistory serves GET /api/v1/readiness/history. Callers read their own
// history; administrators may pass ?user_id= (email or id) to read another
// user's.
func (h *ScoresHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var (
		scores []domain.ReadinessScore
		err    error
	)
	if ref := r.URL.Query().Get("user_id"); ref != "" {
		if httpx.RoleFromContext(ctx) != domain.RoleAdmin.String() {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "only administrators may read another user's history")
			return
		}
		scores, err = h.ScoreService.HistoryFor(ctx, ref)
	} else {
		scores, err = h.ScoreService.History(ctx, httpx.UserIDFromContext(ctx))
	}

	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "unknown user")
			return
		}
		log.Error("history read failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	out := make([]scoreResponse, 0, len(scores))
	for _, s := range scores {
		out = append(out, toScoreResponse(s))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleSummary serves GET /api/v1/readiness/users: every user's most recent
// score, keyed by email.
func (h *ScoresHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	rows, err := h.ScoreService.Summary(ctx)
	if err != nil {
		log.Error("summary read failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	out := make([]summaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, summaryRow{
			UserEmail:        row.UserEmail,
			LatestScore:      row.LatestScore,
			LatestSubmission: row.LatestSubmission,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleLatest serves GET /api/v1/readiness/{user_id}/latest. The path
// segment accepts an email or a raw user id.
func (h *ScoresHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	score, err := h.ScoreService.LatestFor(ctx, r.PathValue("user_id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no scores recorded for this user")
			return
		}
		log.Error("latest read failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toScoreResponse(score))
}
