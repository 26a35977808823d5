package domain

import "time"

// AuditEntry records one mutating request. Entries are immutable once
// written; nothing in this service updates or deletes them except retention
// pruning.
type AuditEntry struct {
	ID             string
	ActorID        *string // nil when the request carried no decodable token
	Action         string  // "METHOD /path"
	TargetResource string
	Details        map[string]any
	IPAddress      string
	Timestamp      time.Time
}
