package invitation

import "context"

// InvitationService defines the interface for invitation business logic
type InvitationService interface {
	// Create validates and persists a new pending invitation. It does not send email.
	Create(ctx context.Context, req CreateRequest) (InvitationWithOrganisation, error)

	// Validate reports whether a token is usable. Unusable tokens are not errors.
	Validate(ctx context.Context, req ValidateRequest) (ValidationResult, error)

	// Accept accepts an invitation and, when a user is given, joins it to the organisation
	Accept(ctx context.Context, req AcceptRequest) (AcceptResponse, error)

	// Revoke revokes a pending invitation of the organisation
	Revoke(ctx context.Context, token, organisationID, actorID string) error

	// Resend rotates the token of a pending invitation and restarts its TTL
	Resend(ctx context.Context, token, organisationID, actorID string) (InvitationWithOrganisation, error)

	// ListPending lists the organisation's pending, unexpired invitations, newest first
	ListPending(ctx context.Context, organisationID string) ([]InvitationResponse, error)

	// ListMine lists pending invitations addressed to email
	ListMine(ctx context.Context, email string) ([]MyInvitationResponse, error)

	// SweepExpired expires every pending invitation past its deadline
	SweepExpired(ctx context.Context) (int64, error)
}
