package user

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"    // Organisation administrator - full access
	RoleManager  Role = "manager"  // Runs projects, teams and sprints
	RoleEmployee Role = "employee" // Regular member
)

// AllRoles lists every role an association may carry.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleEmployee}
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

type User struct {
	ID                    string
	Email                 string
	Name                  string
	Status                Status
	IsActive              bool
	CurrentOrganisationID *string
	EmailVerified         bool
	OTPSecret             *string
	OTPExpiresAt          *time.Time
	OTPAttempts           int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Association links a user to an organisation. It is a real membership only
// while IsActive is true.
type Association struct {
	UserID         string
	OrganisationID string
	Role           Role
	IsActive       bool
	JoinedAt       time.Time
	Banned         bool
	BanReason      *string
	BanExpiresAt   *time.Time
	BannedBy       *string
	BannedAt       *time.Time
	// ActiveBeforeBan is the IsActive value an unban restores.
	ActiveBeforeBan bool
	Permissions     []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsBannedAt reports whether the ban sub-state is in force at t.
func (a *Association) IsBannedAt(t time.Time) bool {
	if !a.Banned {
		return false
	}
	return a.BanExpiresAt == nil || t.Before(*a.BanExpiresAt)
}

// Member is an association joined with the user's identity.
type Member struct {
	Association
	Email string
	Name  string
}
