package invitation

import "errors"

var (
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrDuplicateInvitation = errors.New("email already has a pending invitation in this organisation")
	ErrAlreadyMember       = errors.New("user is already a member of this organisation")
	ErrNotFoundOrProcessed = errors.New("invitation not found or already processed")
	ErrExpired             = errors.New("invitation has expired")
	ErrInvalidOrganization = errors.New("organisation not found")
	ErrInvalidInviteLink   = errors.New("invite link is missing token, email or org")
)

// Reasons reported by Validate for an unusable invitation.
const (
	ReasonInvalidOrExpired  = "invalid-or-expired"
	ReasonExpired           = "expired"
	ReasonWrongOrganization = "wrong-organization"
)
