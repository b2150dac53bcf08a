package enums

import "fmt"

// Role is the marketplace-wide role carried on the authenticated user.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleVendor    Role = "vendor"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleLivreur   Role = "livreur"
)

var validRoles = []Role{
	RoleCustomer,
	RoleVendor,
	RoleAdmin,
	RoleModerator,
	RoleLivreur,
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

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
