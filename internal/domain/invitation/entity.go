package invitation

import (
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
)

// Status represents the status of an invitation
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
)

// IsTerminal reports whether no transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusExpired || s == StatusRevoked
}

// DefaultTTL is the lifetime of a new invitation.
const DefaultTTL = 24 * time.Hour

// MaxCustomMessageLength bounds the free text sent along with an invitation.
const MaxCustomMessageLength = 500

// InvitableRoles are the roles the self-service invitation path may assign.
// The schema accepts every user.Role.
var InvitableRoles = []user.Role{user.RoleEmployee}

// Invitation grants its holder a one-time right to join an organisation.
// Inviter fields are a snapshot taken when the invitation was created.
type Invitation struct {
	ID             string
	Token          string
	Email          string
	Name           string
	Role           user.Role
	OrganisationID string
	InviterID      string
	InviterName    string
	InviterEmail   string
	Status         Status
	IsNewUser      bool
	CustomMessage  *string
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
	RevokedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InvitationWithOrganisation carries the organisation name for invitee-facing lists.
type InvitationWithOrganisation struct {
	Invitation
	OrganisationName string
}

// IsExpiredAt reports whether the deadline has passed at t.
func (i *Invitation) IsExpiredAt(t time.Time) bool {
	return !t.Before(i.ExpiresAt)
}

// CanBeAcceptedAt checks if the invitation can be accepted at t
func (i *Invitation) CanBeAcceptedAt(t time.Time) bool {
	return i.Status == StatusPending && !i.IsExpiredAt(t)
}
