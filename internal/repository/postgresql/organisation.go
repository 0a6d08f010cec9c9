package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const organisationColumns = `
	o.id, o.name, o.slug, o.description, o.contact_email, o.website, o.subscription_tier,
	o.settings, o.owner_id, o.created_at, o.updated_at, o.deleted_at`

type organisationRepositoryImpl struct {
	db *database.DB
}

func NewOrganisationRepository(db *database.DB) organisation.OrganisationRepository {
	return &organisationRepositoryImpl{db: db}
}

func scanOrganisation(row pgx.Row, extra ...any) (organisation.Organisation, error) {
	var o organisation.Organisation
	dest := []any{
		&o.ID, &o.Name, &o.Slug, &o.Description, &o.ContactEmail, &o.Website, &o.SubscriptionTier,
		&o.Settings, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return o, err
}

// GetByID implements organisation.OrganisationRepository.
func (r *organisationRepositoryImpl) GetByID(ctx context.Context, id string) (organisation.Organisation, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + organisationColumns + ` FROM organisations o WHERE o.id = $1 AND o.deleted_at IS NULL`

	o, err := scanOrganisation(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return organisation.Organisation{}, organisation.ErrOrganisationNotFound
		}
		return organisation.Organisation{}, fmt.Errorf("failed to get organisation: %w", err)
	}
	return o, nil
}

// ExistsBySlug implements organisation.OrganisationRepository.
func (r *organisationRepositoryImpl) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM organisations WHERE slug = $1 AND deleted_at IS NULL)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check organisation slug: %w", err)
	}
	return exists, nil
}

// Create implements organisation.OrganisationRepository.
func (r *organisationRepositoryImpl) Create(ctx context.Context, org organisation.Organisation) (organisation.Organisation, error) {
	q := GetQuerier(ctx, r.db)

	if org.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return organisation.Organisation{}, fmt.Errorf("failed to generate organisation id: %w", err)
		}
		org.ID = id.String()
	}
	if org.Settings == nil {
		org.Settings = map[string]any{}
	}
	if org.SubscriptionTier == "" {
		org.SubscriptionTier = organisation.TierFree
	}

	query := `
		INSERT INTO organisations AS o (
			id, name, slug, description, contact_email, website, subscription_tier, settings, owner_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING` + organisationColumns

	created, err := scanOrganisation(q.QueryRow(ctx, query,
		org.ID, org.Name, org.Slug, org.Description, org.ContactEmail, org.Website,
		org.SubscriptionTier, org.Settings, org.OwnerID, org.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "organisations_slug_key") {
			return organisation.Organisation{}, organisation.ErrSlugExists
		}
		if isForeignKeyViolation(err, "organisations_owner_id_fkey") {
			return organisation.Organisation{}, user.ErrUserNotFound
		}
		return organisation.Organisation{}, fmt.Errorf("failed to create organisation: %w", err)
	}
	return created, nil
}

// Update implements organisation.OrganisationRepository.
func (r *organisationRepositoryImpl) Update(ctx context.Context, id string, req organisation.UpdateRequest, now time.Time) (organisation.Organisation, error) {
	q := GetQuerier(ctx, r.db)

	updates := []string{}
	args := []interface{}{}
	argIdx := 1

	if req.Name != nil {
		updates = append(updates, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, strings.TrimSpace(*req.Name))
		argIdx++
	}
	if req.Description != nil {
		updates = append(updates, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *req.Description)
		argIdx++
	}
	if req.ContactEmail != nil {
		updates = append(updates, fmt.Sprintf("contact_email = $%d", argIdx))
		args = append(args, *req.ContactEmail)
		argIdx++
	}
	if req.Website != nil {
		updates = append(updates, fmt.Sprintf("website = $%d", argIdx))
		args = append(args, *req.Website)
		argIdx++
	}
	if req.SubscriptionTier != nil {
		updates = append(updates, fmt.Sprintf("subscription_tier = $%d", argIdx))
		args = append(args, *req.SubscriptionTier)
		argIdx++
	}
	if req.Settings != nil {
		// Settings are merged key by key into the stored document.
		settings, err := json.Marshal(req.Settings)
		if err != nil {
			return organisation.Organisation{}, fmt.Errorf("failed to encode settings: %w", err)
		}
		updates = append(updates, fmt.Sprintf("settings = settings || $%d::jsonb", argIdx))
		args = append(args, string(settings))
		argIdx++
	}

	updates = append(updates, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, now)
	argIdx++

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE organisations AS o SET %s
		WHERE o.id = $%d AND o.deleted_at IS NULL
		RETURNING`+organisationColumns, strings.Join(updates, ", "), argIdx)

	updated, err := scanOrganisation(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return organisation.Organisation{}, organisation.ErrOrganisationNotFound
		}
		return organisation.Organisation{}, fmt.Errorf("failed to update organisation: %w", err)
	}
	return updated, nil
}

// SoftDelete implements organisation.OrganisationRepository.
func (r *organisationRepositoryImpl) SoftDelete(ctx context.Context, id string, now time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE organisations SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, now)
	if err != nil {
		return fmt.Errorf("failed to delete organisation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return organisation.ErrOrganisationNotFound
	}
	return nil
}

// ListForUser implements organisation.OrganisationRepository.
func (r *organisationRepositoryImpl) ListForUser(ctx context.Context, userID string) ([]organisation.Membership, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + organisationColumns + `, m.role, m.joined_at,
			COALESCE(u.current_organisation_id = o.id, FALSE)
		FROM organisation_members m
		JOIN organisations o ON o.id = m.organisation_id AND o.deleted_at IS NULL
		JOIN users u ON u.id = m.user_id
		WHERE m.user_id = $1 AND m.is_active
		ORDER BY m.joined_at ASC`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organisations: %w", err)
	}
	defer rows.Close()

	memberships := []organisation.Membership{}
	for rows.Next() {
		var m organisation.Membership
		o, err := scanOrganisation(rows, &m.Role, &m.JoinedAt, &m.IsCurrent)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organisation: %w", err)
		}
		m.Organisation = o
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}
