package audit

import "context"

// Recorder writes audit entries. Record never fails the calling operation.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type AuditService interface {
	Recorder
	List(ctx context.Context, organisationID, before string, limit int) ([]EntryResponse, error)
}
