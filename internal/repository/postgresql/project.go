package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
)

type projectRepositoryImpl struct {
	db *database.DB
}

func NewProjectRepository(db *database.DB) project.ProjectRepository {
	return &projectRepositoryImpl{db: db}
}

// ArchiveByOrganisation implements project.ProjectRepository.
func (r *projectRepositoryImpl) ArchiveByOrganisation(ctx context.Context, organisationID string, now time.Time) (project.ArchiveResult, error) {
	q := GetQuerier(ctx, r.db)

	var result project.ArchiveResult

	tag, err := q.Exec(ctx, `
		UPDATE projects SET archived = TRUE, archived_at = $2, updated_at = $2
		WHERE organisation_id = $1 AND NOT archived`, organisationID, now)
	if err != nil {
		return project.ArchiveResult{}, fmt.Errorf("failed to archive projects: %w", err)
	}
	result.Projects = tag.RowsAffected()

	tag, err = q.Exec(ctx, `
		UPDATE teams SET archived = TRUE, archived_at = $2, updated_at = $2
		WHERE organisation_id = $1 AND NOT archived`, organisationID, now)
	if err != nil {
		return project.ArchiveResult{}, fmt.Errorf("failed to archive teams: %w", err)
	}
	result.Teams = tag.RowsAffected()

	return result, nil
}
