package user

import "context"

// MembershipService manages a user's associations with organisations.
type MembershipService interface {
	// Provision creates the local user row for a verified identity-provider
	// account on its first request. Known accounts are left untouched.
	Provision(ctx context.Context, userID, email string) error

	// Join appends (or reactivates) an active association and points the user's
	// current organisation at it when none is set. Joining twice is a no-op.
	Join(ctx context.Context, userID, organisationID string, role Role) (added bool, err error)

	// Role returns the caller's role in an organisation, failing when the
	// association is inactive or banned.
	Role(ctx context.Context, userID, organisationID string) (Role, error)

	ListMembers(ctx context.Context, organisationID string) ([]MemberResponse, error)
	ChangeRole(ctx context.Context, req ChangeRoleRequest) error
	Remove(ctx context.Context, organisationID, userID, actorID string) error
	Ban(ctx context.Context, req BanRequest) error
	Unban(ctx context.Context, organisationID, userID, actorID string) error
	SwitchOrganisation(ctx context.Context, userID, organisationID string) error
}
