package invitation

import (
	"context"
	"time"
)

// InvitationRepository defines the interface for invitation data access.
// Every conditional transition returns ErrInvitationNotFound when its guard does not hold.
type InvitationRepository interface {
	// Create persists a new invitation. A second pending invitation for the
	// same (email, organisation) fails with ErrDuplicateInvitation.
	Create(ctx context.Context, inv Invitation) (Invitation, error)

	GetByToken(ctx context.Context, token string) (Invitation, error)

	// GetPendingByTokenAndEmail matches the email case-insensitively.
	GetPendingByTokenAndEmail(ctx context.Context, token, email string) (Invitation, error)

	// ListPendingByOrganisation lists pending invitations with expires_at > now, newest first.
	ListPendingByOrganisation(ctx context.Context, organisationID string, now time.Time) ([]Invitation, error)

	// ListPendingByEmail lists pending invitations with expires_at > now addressed to email.
	ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]InvitationWithOrganisation, error)

	// MarkAccepted moves a pending, unexpired invitation to accepted.
	MarkAccepted(ctx context.Context, id string, now time.Time) (Invitation, error)

	// MarkRevoked moves a pending invitation of organisationID to revoked.
	MarkRevoked(ctx context.Context, token, organisationID string, now time.Time) (Invitation, error)

	// MarkExpired moves a pending invitation to expired.
	MarkExpired(ctx context.Context, id string, now time.Time) error

	// ExpireStalePending expires pending invitations for the pair whose deadline has passed.
	ExpireStalePending(ctx context.Context, email, organisationID string, now time.Time) (int64, error)

	// SweepExpired expires every pending invitation whose deadline has passed.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	// UpdateToken rotates the token and deadline of a pending invitation.
	UpdateToken(ctx context.Context, id, newToken string, expiresAt, now time.Time) (Invitation, error)

	RevokeAllPendingByOrganisation(ctx context.Context, organisationID string, now time.Time) (int64, error)
}
