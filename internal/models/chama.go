package models

import "time"

// Role is a member's role within a chama.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Chama is a rotating savings group.
type Chama struct {
	// ID is the unique identifier for the chama (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// Type is a free-form group classification (e.g., "merry-go-round").
	Type string

	// Private hides the chama from public listings.
	Private bool

	// OwnerID is the user who created the chama. The owner is always an admin.
	OwnerID string

	CreatedAt time.Time
}

// ChamaMember is a user's membership in a chama.
type ChamaMember struct {
	ChamaID string
	UserID  string
	Role    Role

	// PenaltyPoints is the member's standing. It only ever grows; penalties
	// are historical.
	PenaltyPoints int

	JoinedAt time.Time
}

// IsAdmin reports whether the member holds the admin role.
func (m *ChamaMember) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}
