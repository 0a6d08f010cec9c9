package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
)

type auditRepositoryImpl struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.AuditRepository {
	return &auditRepositoryImpl{db: db}
}

// Create implements audit.AuditRepository.
func (r *auditRepositoryImpl) Create(ctx context.Context, e audit.Entry) error {
	q := GetQuerier(ctx, r.db)

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := q.Exec(ctx, `
		INSERT INTO audit_logs (id, organisation_id, actor_id, action, target_type, target_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OrganisationID, e.ActorID, e.Action, e.TargetType, e.TargetID, metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// ListByOrganisation implements audit.AuditRepository.
func (r *auditRepositoryImpl) ListByOrganisation(ctx context.Context, organisationID, before string, limit int) ([]audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, organisation_id::text, actor_id::text, action, target_type, target_id, metadata, created_at
		FROM audit_logs
		WHERE organisation_id = $1 AND ($2::text = '' OR id::text < $2::text)
		ORDER BY id DESC
		LIMIT $3`

	rows, err := q.Query(ctx, query, organisationID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []audit.Entry{}
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.OrganisationID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
