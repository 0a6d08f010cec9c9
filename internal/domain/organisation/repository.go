package organisation

import (
	"context"
	"time"
)

type OrganisationRepository interface {
	// GetByID ignores soft-deleted organisations.
	GetByID(ctx context.Context, id string) (Organisation, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, org Organisation) (Organisation, error)
	Update(ctx context.Context, id string, req UpdateRequest, now time.Time) (Organisation, error)
	SoftDelete(ctx context.Context, id string, now time.Time) error

	// ListForUser returns the organisations where userID has an active association.
	ListForUser(ctx context.Context, userID string) ([]Membership, error)
}
