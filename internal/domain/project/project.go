package project

import (
	"context"
	"time"
)

// ArchiveResult counts the rows archived for a tenant.
type ArchiveResult struct {
	Projects int64
	Teams    int64
}

// ProjectRepository covers the part of projects and teams touched by organisation deletion.
type ProjectRepository interface {
	// ArchiveByOrganisation marks every unarchived project and team of the tenant archived.
	ArchiveByOrganisation(ctx context.Context, organisationID string, now time.Time) (ArchiveResult, error)
}
