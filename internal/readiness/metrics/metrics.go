// Package metrics exposes the subsystem's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthFailures counts rejected authentication attempts by reason
	// (invalid_credentials, unauthenticated, device_not_approved).
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readiness_auth_failures_total",
		Help: "Rejected authentication attempts by reason.",
	}, []string{"reason"})

	// TokensIssued counts issued tokens by class (user, device).
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readiness_tokens_issued_total",
		Help: "Issued bearer tokens by token class.",
	}, []string{"class"})

	// PayloadsRejected counts score submissions rejected by the ingestion
	// denylist filter.
	PayloadsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readiness_payloads_rejected_total",
		Help: "Score submissions rejected for carrying raw-signal fields.",
	})

	// AuditWritten counts audit entries durably written.
	AuditWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readiness_audit_entries_written_total",
		Help: "Audit entries written to storage.",
	})

	// AuditDropped counts audit entries lost to a full queue or a failed
	// write. Best-effort by design; this is the visibility for that loss.
	AuditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readiness_audit_entries_dropped_total",
		Help: "Audit entries dropped or failed without affecting the request.",
	})
)
