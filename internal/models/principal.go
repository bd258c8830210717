package models

// Role identifies the kind of authenticated principal.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated actor attached to a request. Admin
// principals carry no ID.
type Principal struct {
	Role Role   `json:"role"`
	ID   string `json:"id,omitempty"`
}

// Is reports whether the principal holds role.
func (p *Principal) Is(role Role) bool {
	return p != nil && p.Role == role
}

// IsSelf reports whether the principal is the given patient or doctor.
func (p *Principal) IsSelf(role Role, id string) bool {
	return p.Is(role) && id != "" && p.ID == id
}
