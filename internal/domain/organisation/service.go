package organisation

import "context"

type OrganisationService interface {
	// Create makes the creator the first admin.
	Create(ctx context.Context, req CreateRequest) (Organisation, error)
	GetByID(ctx context.Context, id string) (OrganisationResponse, error)
	Update(ctx context.Context, id, actorID string, req UpdateRequest) (OrganisationResponse, error)

	// Delete soft-deletes the organisation and cascades to members, projects,
	// teams and pending invitations in one transaction.
	Delete(ctx context.Context, id, actorID string) (DeleteResult, error)

	ListMine(ctx context.Context, userID string) ([]MyOrganisationResponse, error)
}
