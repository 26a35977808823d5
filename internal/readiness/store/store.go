package store

import (
	"context"
	"errors"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Devices() Devices
	Scores() Scores
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during every login flow.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// A duplicate email maps to ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateFullName mutates full_name in place (idempotent enrichment).
	UpdateFullName(ctx context.Context, userID, fullName string) error

	// CountUsers returns the total number of users, used by the
	// bootstrap-admin policy.
	CountUsers(ctx context.Context) (int64, error)
}

type Devices interface {
	// GetDeviceByDeviceID looks a device up by its hardware identifier.
	GetDeviceByDeviceID(ctx context.Context, deviceID string) (domain.Device, error)

	// CreateDevice inserts a new device row. device_id carries a unique
	// constraint; a violation maps to ErrAlreadyExists so callers can treat
	// registration as idempotent-by-device-id.
	CreateDevice(ctx context.Context, d domain.Device) error

	// TouchLastSeen bumps last_seen_at to now.
	TouchLastSeen(ctx context.Context, deviceID string) error

	// SetApproved flips the approval flag (admin tooling and tests).
	SetApproved(ctx context.Context, deviceID string, approved bool) error
}

type Scores interface {
	// CreateScore persists one accepted score bundle.
	CreateScore(ctx context.Context, s domain.ReadinessScore) error

	// ListScoresByUser returns a user's scores, newest first.
	ListScoresByUser(ctx context.Context, userID string) ([]domain.ReadinessScore, error)

	// GetLatestScoreByUser returns the most recent score for a user.
	GetLatestScoreByUser(ctx context.Context, userID string) (domain.ReadinessScore, error)

	// ListLatestScores returns every user's most recent score for the
	// dashboard summary.
	ListLatestScores(ctx context.Context) ([]domain.UserLatestScore, error)
}

type AuditLogs interface {
	// CreateAuditEntry writes one immutable audit row.
	CreateAuditEntry(ctx context.Context, e domain.AuditEntry) error

	// ListAuditEntriesByActor returns an actor's entries, newest first.
	// Anonymous entries (null actor) are not reachable this way; use
	// CountAuditEntries to observe them.
	ListAuditEntriesByActor(ctx context.Context, actorID string) ([]domain.AuditEntry, error)

	// CountAuditEntries returns the total number of entries, anonymous ones
	// included.
	CountAuditEntries(ctx context.Context) (int64, error)

	// DeleteAuditEntriesBefore prunes entries older than the cutoff and
	// returns how many were removed. Retention housekeeping only.
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
