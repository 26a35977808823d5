package domain

import "fmt"

// Role is the closed set of principal roles. Keeping it a named type with
// exhaustive parsing makes an illegal role a construction-time error instead
// of a free-form string drifting through the system.
type Role string

const (
	// RoleSoldier is a field user, usually provisioned through a device.
	RoleSoldier Role = "soldier"

	// RoleAdmin is a supervisory dashboard operator.
	RoleAdmin Role = "admin"

	// RoleCommander is reserved for aggregated command views.
	RoleCommander Role = "commander"

	// RoleDevice is the forced role of every device token. It is never
	// stored on a User row.
	RoleDevice Role = "device"
)

// ParseRole validates a role string coming off the wire or out of storage.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSoldier, RoleAdmin, RoleCommander, RoleDevice:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }
