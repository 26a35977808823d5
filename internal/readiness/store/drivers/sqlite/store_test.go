package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
	"github.com/project-atlas/readiness/internal/readiness/store"
	"github.com/project-atlas/readiness/internal/readiness/store/drivers/sqlite"
	"github.com/project-atlas/readiness/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func createUser(t *testing.T, st store.Store, email string, role domain.Role) domain.User {
	t.Helper()

	u := domain.User{
		ID:     idx.New().String(),
		Email:  email,
		Role:   role,
		Active: true,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	t.Run("count starts at zero", func(t *testing.T) {
		count, err := st.Users().CountUsers(ctx)
		require.NoError(t, err)
		require.Zero(t, count)
	})

	u := createUser(t, st, "ops@atlas.local", domain.RoleAdmin)

	t.Run("fetch by id and email", func(t *testing.T) {
		byID, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "ops@atlas.local", byID.Email)
		require.Equal(t, domain.RoleAdmin, byID.Role)
		require.True(t, byID.Active)
		require.False(t, byID.CreatedAt.IsZero())

		byEmail, err := st.Users().GetUserByEmail(ctx, "ops@atlas.local")
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("unknown user maps to ErrNotFound", func(t *testing.T) {
		_, err := st.Users().GetUserByEmail(ctx, "nobody@atlas.local")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email maps to ErrAlreadyExists", func(t *testing.T) {
		err := st.Users().CreateUser(ctx, domain.User{
			ID:    idx.New().String(),
			Email: "ops@atlas.local",
			Role:  domain.RoleAdmin,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("update full name in place", func(t *testing.T) {
		require.NoError(t, st.Users().UpdateFullName(ctx, u.ID, "Site Ops"))

		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "Site Ops", got.FullName)
	})
}

func TestDevicesRepo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	owner := createUser(t, st, "soldier@atlas.local", domain.RoleSoldier)

	d := domain.Device{
		ID:       idx.New().String(),
		DeviceID: "ABC123",
		UserID:   owner.ID,
		Label:    "Mobile Device",
		Approved: true,
	}
	require.NoError(t, st.Devices().CreateDevice(ctx, d))

	t.Run("duplicate device_id maps to ErrAlreadyExists", func(t *testing.T) {
		err := st.Devices().CreateDevice(ctx, domain.Device{
			ID:       idx.New().String(),
			DeviceID: "ABC123",
			UserID:   owner.ID,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("touch bumps last_seen_at", func(t *testing.T) {
		before, err := st.Devices().GetDeviceByDeviceID(ctx, "ABC123")
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)
		require.NoError(t, st.Devices().TouchLastSeen(ctx, "ABC123"))

		after, err := st.Devices().GetDeviceByDeviceID(ctx, "ABC123")
		require.NoError(t, err)
		require.True(t, after.LastSeenAt.After(before.LastSeenAt))
	})

	t.Run("approval flag flips", func(t *testing.T) {
		require.NoError(t, st.Devices().SetApproved(ctx, "ABC123", false))

		got, err := st.Devices().GetDeviceByDeviceID(ctx, "ABC123")
		require.NoError(t, err)
		require.False(t, got.Approved)
	})
}

func TestScoresRepo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	alice := createUser(t, st, "alice@atlas.local", domain.RoleSoldier)
	bob := createUser(t, st, "bob@atlas.local", domain.RoleSoldier)

	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	submit := func(u domain.User, at time.Time, overall float64) {
		require.NoError(t, st.Scores().CreateScore(ctx, domain.ReadinessScore{
			ID:           idx.New().String(),
			UserID:       u.ID,
			Timestamp:    at,
			Breakdown:    map[string]any{"sleep": 80.0, "hrv": overall},
			OverallScore: overall,
			Confidence:   "high",
		}))
	}

	submit(alice, base, 70)
	submit(alice, base.Add(24*time.Hour), 85)
	submit(bob, base.Add(time.Hour), 60)

	t.Run("history is newest first", func(t *testing.T) {
		scores, err := st.Scores().ListScoresByUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, scores, 2)
		require.Equal(t, 85.0, scores[0].OverallScore)
		require.Equal(t, 80.0, scores[0].Breakdown["sleep"])
	})

	t.Run("latest picks most recent timestamp", func(t *testing.T) {
		latest, err := st.Scores().GetLatestScoreByUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, 85.0, latest.OverallScore)
	})

	t.Run("no scores maps to ErrNotFound", func(t *testing.T) {
		ghost := createUser(t, st, "ghost@atlas.local", domain.RoleSoldier)
		_, err := st.Scores().GetLatestScoreByUser(ctx, ghost.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("summary returns one row per user", func(t *testing.T) {
		summary, err := st.Scores().ListLatestScores(ctx)
		require.NoError(t, err)
		require.Len(t, summary, 2)

		byEmail := map[string]float64{}
		for _, row := range summary {
			byEmail[row.UserEmail] = row.LatestScore
		}
		require.Equal(t, 85.0, byEmail["alice@atlas.local"])
		require.Equal(t, 60.0, byEmail["bob@atlas.local"])
	})
}

func TestAuditLogsRepo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	actor := createUser(t, st, "ops@atlas.local", domain.RoleAdmin)

	t.Run("anonymous entry keeps actor null", func(t *testing.T) {
		require.NoError(t, st.AuditLogs().CreateAuditEntry(ctx, domain.AuditEntry{
			ID:             idx.New().String(),
			Action:         "POST /api/v1/auth/login",
			TargetResource: "/api/v1/auth/login",
			IPAddress:      "203.0.113.9",
		}))
	})

	actorID := actor.ID
	require.NoError(t, st.AuditLogs().CreateAuditEntry(ctx, domain.AuditEntry{
		ID:             idx.New().String(),
		ActorID:        &actorID,
		Action:         "POST /api/v1/readiness",
		TargetResource: "/api/v1/readiness",
		Details:        map[string]any{"status_code": 201.0},
		IPAddress:      "203.0.113.9",
		Timestamp:      time.Now().UTC().Add(-48 * time.Hour),
	}))

	t.Run("list by actor", func(t *testing.T) {
		entries, err := st.AuditLogs().ListAuditEntriesByActor(ctx, actor.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "POST /api/v1/readiness", entries[0].Action)
		require.Equal(t, 201.0, entries[0].Details["status_code"])
	})

	t.Run("count includes anonymous entries", func(t *testing.T) {
		count, err := st.AuditLogs().CountAuditEntries(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, count)
	})

	t.Run("retention prune removes old rows only", func(t *testing.T) {
		removed, err := st.AuditLogs().DeleteAuditEntriesBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, removed)

		entries, err := st.AuditLogs().ListAuditEntriesByActor(ctx, actor.ID)
		require.NoError(t, err)
		require.Empty(t, entries)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sentinel := domain.User{ID: idx.New().String(), Email: "tx@atlas.local", Role: domain.RoleAdmin}
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, sentinel); err != nil {
			return err
		}
		return context.Canceled // any error aborts the tx
	})
	require.Error(t, err)

	_, err = st.Users().GetUserByEmail(ctx, "tx@atlas.local")
	require.ErrorIs(t, err, store.ErrNotFound)
}
