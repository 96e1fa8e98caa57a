package model

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	}
	return false
}

// Requester reports whether callers with role r may submit requests.
func (r Role) Requester() bool {
	return r == RoleStudent || r == RoleFaculty
}

// Identity is the resolved caller of an operation.
type Identity struct {
	UID     string `json:"uid"`
	LoginID string `json:"loginId"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
}

// IsAdmin reports whether the caller is an administrator.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
