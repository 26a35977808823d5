package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/store"
)

// HousekeepingService periodically prunes audit entries past the retention
// window so the audit table does not grow without bound.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the service. A non-positive interval
// defaults to 1 hour; a non-positive retention defaults to 90 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval, "retention", s.Retention)
}

// Stop gracefully shuts down the worker, waiting for in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.Retention)

	removed, err := s.Store.AuditLogs().DeleteAuditEntriesBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to prune audit entries", "error", err)
		return
	}
	if removed > 0 {
		s.Logger.Info("pruned audit entries", "removed", removed, "cutoff", cutoff)
	}
}
