package audit

import "context"

type AuditRepository interface {
	Create(ctx context.Context, e Entry) error

	// ListByOrganisation returns entries newest first. A non-empty before is
	// an entry ID cursor.
	ListByOrganisation(ctx context.Context, organisationID, before string, limit int) ([]Entry, error)
}
