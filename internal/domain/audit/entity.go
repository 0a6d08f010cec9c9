package audit

import "time"

type Action string

const (
	ActionInvitationCreated   Action = "invitation.created"
	ActionInvitationAccepted  Action = "invitation.accepted"
	ActionInvitationRevoked   Action = "invitation.revoked"
	ActionInvitationResent    Action = "invitation.resent"
	ActionInvitationsSwept    Action = "invitation.expired_swept"
	ActionOrganisationCreated Action = "organisation.created"
	ActionOrganisationUpdated Action = "organisation.updated"
	ActionOrganisationDeleted Action = "organisation.deleted"
	ActionMemberRemoved       Action = "member.removed"
	ActionMemberRoleChanged   Action = "member.role_changed"
	ActionMemberBanned        Action = "member.banned"
	ActionMemberUnbanned      Action = "member.unbanned"
)

const (
	TargetInvitation   = "invitation"
	TargetOrganisation = "organisation"
	TargetMember       = "member"
)

// Entry is one row of the audit log. ID is a ULID so entries sort by creation.
type Entry struct {
	ID             string
	OrganisationID *string
	ActorID        *string
	Action         Action
	TargetType     string
	TargetID       string
	Metadata       map[string]any
	CreatedAt      time.Time
}

// EntryResponse - GET /organisations/{id}/audit-logs
type EntryResponse struct {
	ID         string         `json:"id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func NewEntryResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)
