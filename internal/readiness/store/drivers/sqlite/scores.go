package sqlite

import (
	"context"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
)

type scoresRepo struct {
	q dbtx
}

func (r *scoresRepo) CreateScore(ctx context.Context, s domain.ReadinessScore) error {
	breakdown, err := marshalJSON(s.Breakdown)
	if err != nil {
		return err
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.q.ExecContext(ctx,
		`INSERT INTO readiness_scores (id, user_id, ts, breakdown, overall_score, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Timestamp, breakdown, s.OverallScore, s.Confidence, createdAt)
	return mapConstraint(err)
}

const scoreColumns = `id, user_id, ts, breakdown, overall_score, confidence, created_at`

func (r *scoresRepo) ListScoresByUser(ctx context.Context, userID string) ([]domain.ReadinessScore, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM readiness_scores WHERE user_id = ? ORDER BY ts DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []domain.ReadinessScore{}
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *scoresRepo) GetLatestScoreByUser(ctx context.Context, userID string) (domain.ReadinessScore, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+scoreColumns+` FROM readiness_scores
		 WHERE user_id = ? ORDER BY ts DESC LIMIT 1`, userID)
	return scanScore(row)
}

func (r *scoresRepo) ListLatestScores(ctx context.Context) ([]domain.UserLatestScore, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT u.email, s.overall_score, s.ts
		 FROM readiness_scores s
		 JOIN (
		     SELECT user_id, MAX(ts) AS max_ts
		     FROM readiness_scores
		     GROUP BY user_id
		 ) latest ON s.user_id = latest.user_id AND s.ts = latest.max_ts
		 JOIN users u ON u.id = s.user_id
		 ORDER BY s.ts DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := []domain.UserLatestScore{}
	for rows.Next() {
		var row domain.UserLatestScore
		if err := rows.Scan(&row.UserEmail, &row.LatestScore, &row.LatestSubmission); err != nil {
			return nil, err
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

func scanScore(row rowScanner) (domain.ReadinessScore, error) {
	var (
		s         domain.ReadinessScore
		breakdown string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Timestamp, &breakdown,
		&s.OverallScore, &s.Confidence, &s.CreatedAt)
	if err != nil {
		return domain.ReadinessScore{}, mapNotFound(err)
	}
	s.Breakdown = unmarshalJSON(breakdown)
	return s, nil
}
