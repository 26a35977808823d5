package domain

import "time"

// Device is a piece of field hardware bound to exactly one owning User.
// An unapproved device keeps its row but is refused token issuance.
type Device struct {
	ID         string
	DeviceID   string // hardware identifier, unique across the fleet
	UserID     string
	Label      string
	Approved   bool
	LastSeenAt time.Time
}
