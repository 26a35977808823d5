package service

import (
	"context"
	"errors"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
	"github.com/project-atlas/readiness/internal/readiness/metrics"
	"github.com/project-atlas/readiness/internal/readiness/policy"
	"github.com/project-atlas/readiness/internal/readiness/store"
	"github.com/project-atlas/readiness/pkg/idx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

// ErrNotFound reports an unknown user or an empty score history.
var ErrNotFound = errors.New("not_found")

// ScoreSubmission is one inbound score bundle before it passes the trust
// boundary.
type ScoreSubmission struct {
	Timestamp    time.Time
	OverallScore float64
	Confidence   string
	Breakdown    map[string]any
}

// ScoreService gates score ingestion behind the denylist filter and serves
// the dashboard read paths. Persistence itself is plain data access.
type ScoreService struct {
	Store  store.Store
	Filter *policy.Denylist
}

// Submit vets the breakdown keys and persists the score for userID. A
// denylisted key rejects the whole submission before anything touches
// storage; the returned *policy.RejectedKeyError names the offending key.
func (s *ScoreService) Submit(ctx context.Context, userID string, sub ScoreSubmission) (domain.ReadinessScore, error) {
	l := slogx.FromContext(ctx)

	if err := s.Filter.Check(sub.Breakdown); err != nil {
		var rejected *policy.RejectedKeyError
		if errors.As(err, &rejected) {
			l.Warn("raw data submission rejected",
				"user_id", userID, "key", rejected.Key, "pattern", rejected.Matched)
			metrics.PayloadsRejected.Inc()
		}
		return domain.ReadinessScore{}, err
	}

	score := domain.ReadinessScore{
		ID:           idx.New().String(),
		UserID:       userID,
		Timestamp:    sub.Timestamp,
		Breakdown:    sub.Breakdown,
		OverallScore: sub.OverallScore,
		Confidence:   sub.Confidence,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.Scores().CreateScore(ctx, score); err != nil {
		return domain.ReadinessScore{}, err
	}
	return score, nil
}

// History returns the caller's own scores, newest first.
func (s *ScoreService) History(ctx context.Context, userID string) ([]domain.ReadinessScore, error) {
	return s.Store.Scores().ListScoresByUser(ctx, userID)
}

// HistoryFor resolves a user reference (email or id) and returns that user's
// scores. Admin-only at the HTTP layer.
func (s *ScoreService) HistoryFor(ctx context.Context, userRef string) ([]domain.ReadinessScore, error) {
	user, err := s.resolveUser(ctx, userRef)
	if err != nil {
		return nil, err
	}
	return s.Store.Scores().ListScoresByUser(ctx, user.ID)
}

// LatestFor returns the most recent score for the referenced user.
func (s *ScoreService) LatestFor(ctx context.Context, userRef string) (domain.ReadinessScore, error) {
	user, err := s.resolveUser(ctx, userRef)
	if err != nil {
		return domain.ReadinessScore{}, err
	}

	score, err := s.Store.Scores().GetLatestScoreByUser(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ReadinessScore{}, ErrNotFound
	}
	return score, err
}

// Summary returns every user's latest score for the dashboard overview.
func (s *ScoreService) Summary(ctx context.Context) ([]domain.UserLatestScore, error) {
	return s.Store.Scores().ListLatestScores(ctx)
}

// resolveUser accepts either an email or a raw user id, the two forms the
// dashboard uses interchangeably.
func (s *ScoreService) resolveUser(ctx context.Context, ref string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, ref)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	user, err = s.Store.Users().GetUserByID(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotFound
	}
	return user, err
}
