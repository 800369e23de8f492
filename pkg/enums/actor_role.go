package enums

import "fmt"

// ActorRole describes the authenticated caller category.
type ActorRole string

const (
	RoleAdmin    ActorRole = "admin"
	RolePartner  ActorRole = "partner"
	RoleCustomer ActorRole = "customer"
	RoleService  ActorRole = "service"
)

var validActorRoles = []ActorRole{
	RoleAdmin,
	RolePartner,
	RoleCustomer,
	RoleService,
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts the raw string to ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
