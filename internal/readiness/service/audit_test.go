package service_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
	"github.com/project-atlas/readiness/internal/readiness/service"
	"github.com/project-atlas/readiness/internal/readiness/store"
	"github.com/project-atlas/readiness/internal/readiness/store/drivers/sqlite"
	"github.com/project-atlas/readiness/pkg/idx"
	"github.com/project-atlas/readiness/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newAuditRecorder(t *testing.T) (*service.AuditRecorder, store.Store, *jwtx.Codec) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec := newCodec(t)
	rec := &service.AuditRecorder{
		Store:    st,
		Verifier: codec,
		Logger:   slog.Default(),
	}
	return rec, st, codec
}

func TestAuditRecorderWritesEntry(t *testing.T) {
	ctx := context.Background()
	rec, st, codec := newAuditRecorder(t)

	actor := domain.User{ID: idx.New().String(), Email: "ops@x.com", Role: domain.RoleAdmin}
	require.NoError(t, st.Users().CreateUser(ctx, actor))

	raw, err := codec.Sign(jwtx.Claims{Subject: actor.Email, Role: "admin", UserID: actor.ID}, time.Minute)
	require.NoError(t, err)

	rec.Start()
	rec.Record(service.RequestInfo{
		BearerToken: raw,
		Method:      "POST",
		Path:        "/api/v1/readiness",
		IPAddress:   "203.0.113.7",
		StatusCode:  201,
		UserAgent:   "atlas-mobile/1.4",
	})
	rec.Stop() // drains the queue

	entries, err := st.AuditLogs().ListAuditEntriesByActor(ctx, actor.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	require.Equal(t, "POST /api/v1/readiness", entry.Action)
	require.Equal(t, "/api/v1/readiness", entry.TargetResource)
	require.Equal(t, "203.0.113.7", entry.IPAddress)
	require.EqualValues(t, 201, entry.Details["status_code"])
	require.Equal(t, "atlas-mobile/1.4", entry.Details["user_agent"])
}

func TestAuditRecorderAnonymousActor(t *testing.T) {
	rec, st, _ := newAuditRecorder(t)

	rec.Start()
	for _, token := range []string{"", "not-a-token"} {
		rec.Record(service.RequestInfo{
			BearerToken: token,
			Method:      "POST",
			Path:        "/api/v1/auth/login",
			StatusCode:  401,
		})
	}

	// Expired tokens also resolve to a null actor, never an error.
	codec := newCodec(t)
	expired, err := codec.Sign(jwtx.Claims{Subject: "x", Role: "admin", UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	rec.Record(service.RequestInfo{BearerToken: expired, Method: "DELETE", Path: "/x", StatusCode: 401})
	rec.Stop()

	// All three entries are written, none attributed to u1.
	count, err := st.AuditLogs().CountAuditEntries(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	entries, err := st.AuditLogs().ListAuditEntriesByActor(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAuditRecorderSwallowsWriteFailures(t *testing.T) {
	rec, st, _ := newAuditRecorder(t)

	rec.Start()
	require.NoError(t, st.Close()) // make every write fail

	// Must neither panic nor block the caller.
	rec.Record(service.RequestInfo{Method: "POST", Path: "/api/v1/readiness", StatusCode: 201})
	rec.Stop()
}

func TestAuditRecorderRecordAfterStop(t *testing.T) {
	rec, st, _ := newAuditRecorder(t)

	rec.Start()
	rec.Stop()

	// Handlers force-closed during shutdown can still fire their audit hook;
	// the late entry is dropped, never a panic or a write.
	require.NotPanics(t, func() {
		rec.Record(service.RequestInfo{Method: "POST", Path: "/api/v1/readiness", StatusCode: 201})
	})

	count, err := st.AuditLogs().CountAuditEntries(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestAuditRecorderFullQueueDrops(t *testing.T) {
	rec, _, _ := newAuditRecorder(t)
	rec.QueueSize = 1
	rec.Start()
	defer rec.Stop()

	// Flood well past the queue size; Record must never block even while
	// the worker is busy writing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			rec.Record(service.RequestInfo{Method: "POST", Path: "/flood", StatusCode: 201})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}
}
