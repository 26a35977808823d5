package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
	"github.com/project-atlas/readiness/internal/readiness/metrics"
	"github.com/project-atlas/readiness/internal/readiness/store"
	"github.com/project-atlas/readiness/pkg/idx"
	"github.com/project-atlas/readiness/pkg/jwtx"
)

const (
	defaultAuditQueueSize    = 256
	defaultAuditWriteTimeout = 5 * time.Second
)

// AuditRecorder writes one audit row per mutating request, fully decoupled
// from the request path: entries are handed to a background worker over a
// bounded queue, each write runs in its own transaction with its own
// context, and every failure mode (full queue, unwritable store) is
// swallowed after logging. A missed entry is an accepted loss; it must never
// fail or delay the original request.
type AuditRecorder struct {
	Store        store.Store
	Verifier     jwtx.Verifier
	Logger       *slog.Logger
	QueueSize    int           // defaults to 256 when zero
	WriteTimeout time.Duration // per-write budget, defaults to 5s

	queue  chan domain.AuditEntry
	stopCh chan struct{}
	doneCh chan struct{}
}

// RequestInfo is the slice of an HTTP request the recorder cares about.
type RequestInfo struct {
	BearerToken string // raw token, may be empty or invalid
	Method      string
	Path        string
	IPAddress   string
	StatusCode  int
	UserAgent   string
}

// Start launches the background writer. Call Stop to drain and shut down.
func (a *AuditRecorder) Start() {
	if a.QueueSize <= 0 {
		a.QueueSize = defaultAuditQueueSize
	}
	if a.WriteTimeout <= 0 {
		a.WriteTimeout = defaultAuditWriteTimeout
	}
	a.queue = make(chan domain.AuditEntry, a.QueueSize)
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})

	go a.run()
	a.Logger.Info("audit recorder started", "queue_size", a.QueueSize)
}

// Stop signals the worker and blocks until buffered entries are written. The
// queue itself stays open: handlers force-closed during shutdown may still
// call Record, which must drop the entry rather than panic.
func (a *AuditRecorder) Stop() {
	close(a.stopCh)
	<-a.doneCh
	a.Logger.Info("audit recorder stopped")
}

// Record builds an entry from the finished request and enqueues it without
// blocking. The bearer token gets its own best-effort decode here; an
// undecodable token records a null actor, never an error.
func (a *AuditRecorder) Record(info RequestInfo) {
	entry := domain.AuditEntry{
		ID:             idx.New().String(),
		ActorID:        a.resolveActor(info.BearerToken),
		Action:         info.Method + " " + info.Path,
		TargetResource: info.Path,
		Details: map[string]any{
			"status_code": info.StatusCode,
			"user_agent":  info.UserAgent,
		},
		IPAddress: info.IPAddress,
		Timestamp: time.Now().UTC(),
	}

	select {
	case <-a.stopCh:
		metrics.AuditDropped.Inc()
		a.Logger.Warn("audit recorder stopped, entry dropped", "action", entry.Action)
		return
	default:
	}

	select {
	case a.queue <- entry:
	default:
		metrics.AuditDropped.Inc()
		a.Logger.Warn("audit queue full, entry dropped", "action", entry.Action)
	}
}

func (a *AuditRecorder) resolveActor(raw string) *string {
	if raw == "" {
		return nil
	}
	claims, err := a.Verifier.Verify(raw)
	if err != nil || claims.UserID == "" {
		return nil
	}
	id := claims.UserID
	return &id
}

func (a *AuditRecorder) run() {
	defer close(a.doneCh)

	for {
		select {
		case entry := <-a.queue:
			a.write(entry)
		case <-a.stopCh:
			// Drain whatever made it into the buffer before the stop signal.
			// An entry racing its way in right now may be lost; that is the
			// same accepted loss as a full queue.
			for {
				select {
				case entry := <-a.queue:
					a.write(entry)
				default:
					return
				}
			}
		}
	}
}

// write persists one entry in its own transaction and swallows any failure.
// The request this entry describes already completed; nothing here may
// surface back to a caller.
func (a *AuditRecorder) write(entry domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), a.WriteTimeout)
	defer cancel()

	err := a.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.AuditLogs().CreateAuditEntry(ctx, entry)
	})
	if err != nil {
		metrics.AuditDropped.Inc()
		a.Logger.Error("audit write failed", "action", entry.Action, "err", err)
		return
	}
	metrics.AuditWritten.Inc()
}
