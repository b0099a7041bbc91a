package enums

import (
	"fmt"
	"strings"
)

// Role identifies the kind of actor making a request.
type Role string

const (
	RoleAgent        Role = "agent"
	RoleManufacturer Role = "manufacturer"
	RoleSuperAdmin   Role = "super_admin"
	RoleTruckOwner   Role = "truck_owner"
	RoleDriver       Role = "driver"
)

var validRoles = []Role{
	RoleAgent,
	RoleManufacturer,
	RoleSuperAdmin,
	RoleTruckOwner,
	RoleDriver,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanPlaceOrders reports whether the role may create orders.
func (r Role) CanPlaceOrders() bool {
	return r == RoleAgent || r == RoleManufacturer
}

// IsFulfiller reports whether the role physically delivers orders.
func (r Role) IsFulfiller() bool {
	return r == RoleTruckOwner || r == RoleDriver
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid role %q", value)
}
