package domain

import "time"

// ReadinessScore is a computed, pre-aggregated score bundle submitted by a
// device or user. Breakdown is an opaque key→value map; the ingestion policy
// filter vets its keys before the record may be persisted.
type ReadinessScore struct {
	ID           string
	UserID       string
	Timestamp    time.Time
	Breakdown    map[string]any
	OverallScore float64
	Confidence   string
	CreatedAt    time.Time
}

// UserLatestScore is a dashboard summary row: a user (keyed by email) paired
// with their most recent submission.
type UserLatestScore struct {
	UserEmail        string
	LatestScore      float64
	LatestSubmission time.Time
}
