package domain

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string // empty for device-provisioned users that never set one
	FullName     string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// AnonymousFullName is the placeholder set on auto-provisioned device users.
// Device login replaces it when the device later reports a real name.
const AnonymousFullName = "Anonymous Device"
