// Package policy enforces the ingestion trust boundary: only computed,
// pre-aggregated score data may cross into storage. Raw high-resolution
// biometric streams are rejected by field name before anything is persisted.
package policy

import (
	"fmt"
	"strings"
)

// DefaultDeniedSubstrings matches the raw-signal field families the service
// must never store. Matching is by substring so key variants (ecg_samples,
// raw_ecg, hrSeries) are caught without exhaustive enumeration.
var DefaultDeniedSubstrings = []string{"samples", "series", "ecg", "raw_oxygen"}

// RejectedKeyError names the offending payload key for the audit/log trail.
type RejectedKeyError struct {
	Key     string
	Matched string
}

func (e *RejectedKeyError) Error() string {
	return fmt.Sprintf("payload key %q matches denied pattern %q", e.Key, e.Matched)
}

// Denylist is a case-insensitive substring blocklist over payload keys.
// The zero value denies nothing; construct via NewDenylist.
type Denylist struct {
	substrings []string
}

// NewDenylist builds a filter from the default substrings plus any extras.
// Extras are lowercased; empty entries are dropped.
func NewDenylist(extra ...string) *Denylist {
	subs := make([]string, 0, len(DefaultDeniedSubstrings)+len(extra))
	subs = append(subs, DefaultDeniedSubstrings...)
	for _, e := range extra {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			subs = append(subs, e)
		}
	}
	return &Denylist{substrings: subs}
}

// Check scans the breakdown keys and returns a *RejectedKeyError for the
// first key that case-insensitively contains a denied substring. A nil error
// means the whole payload is acceptable.
func (d *Denylist) Check(breakdown map[string]any) error {
	for key := range breakdown {
		lower := strings.ToLower(key)
		for _, sub := range d.substrings {
			if strings.Contains(lower, sub) {
				return &RejectedKeyError{Key: key, Matched: sub}
			}
		}
	}
	return nil
}
