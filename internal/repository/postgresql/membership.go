package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const associationColumns = `
	m.user_id, m.organisation_id, m.role, m.is_active, m.joined_at, m.banned, m.ban_reason,
	m.ban_expires_at, m.banned_by::text, m.banned_at, m.active_before_ban, m.permissions, m.created_at, m.updated_at`

type membershipRepositoryImpl struct {
	db *database.DB
}

func NewMembershipRepository(db *database.DB) user.MembershipRepository {
	return &membershipRepositoryImpl{db: db}
}

func associationDest(a *user.Association) []any {
	return []any{
		&a.UserID, &a.OrganisationID, &a.Role, &a.IsActive, &a.JoinedAt, &a.Banned, &a.BanReason,
		&a.BanExpiresAt, &a.BannedBy, &a.BannedAt, &a.ActiveBeforeBan, &a.Permissions, &a.CreatedAt, &a.UpdatedAt,
	}
}

func (r *membershipRepositoryImpl) get(ctx context.Context, query string, args ...any) (user.Association, error) {
	q := GetQuerier(ctx, r.db)

	var a user.Association
	if err := q.QueryRow(ctx, query, args...).Scan(associationDest(&a)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Association{}, user.ErrAssociationNotFound
		}
		return user.Association{}, fmt.Errorf("failed to get membership: %w", err)
	}
	return a, nil
}

// Get implements user.MembershipRepository.
func (r *membershipRepositoryImpl) Get(ctx context.Context, userID, organisationID string) (user.Association, error) {
	return r.get(ctx,
		`SELECT`+associationColumns+` FROM organisation_members m WHERE m.user_id = $1 AND m.organisation_id = $2`,
		userID, organisationID)
}

// GetActive implements user.MembershipRepository.
func (r *membershipRepositoryImpl) GetActive(ctx context.Context, userID, organisationID string) (user.Association, error) {
	return r.get(ctx,
		`SELECT`+associationColumns+` FROM organisation_members m WHERE m.user_id = $1 AND m.organisation_id = $2 AND m.is_active`,
		userID, organisationID)
}

// Join implements user.MembershipRepository.
func (r *membershipRepositoryImpl) Join(ctx context.Context, a user.Association) (bool, error) {
	q := GetQuerier(ctx, r.db)

	permissions := a.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	// The WHERE on the conflict branch leaves an active row untouched, so no
	// row is returned and the join reports nothing added.
	query := `
		INSERT INTO organisation_members (user_id, organisation_id, role, is_active, joined_at, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $5, $4, $4)
		ON CONFLICT (user_id, organisation_id) DO UPDATE
		SET role = EXCLUDED.role, is_active = TRUE, joined_at = EXCLUDED.joined_at,
			permissions = EXCLUDED.permissions, updated_at = EXCLUDED.updated_at,
			banned = FALSE, ban_reason = NULL, ban_expires_at = NULL, banned_by = NULL, banned_at = NULL,
			active_before_ban = FALSE
		WHERE organisation_members.is_active = FALSE
		RETURNING user_id`

	var userID string
	err := q.QueryRow(ctx, query, a.UserID, a.OrganisationID, a.Role, a.JoinedAt, permissions).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if isForeignKeyViolation(err, "organisation_members_user_id_fkey") {
			return false, user.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to join organisation: %w", err)
	}
	return true, nil
}

// ListByOrganisation implements user.MembershipRepository.
func (r *membershipRepositoryImpl) ListByOrganisation(ctx context.Context, organisationID string) ([]user.Member, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + associationColumns + `, u.email, u.name
		FROM organisation_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organisation_id = $1 AND m.is_active
		ORDER BY m.joined_at ASC`

	rows, err := q.Query(ctx, query, organisationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []user.Member{}
	for rows.Next() {
		var m user.Member
		if err := rows.Scan(append(associationDest(&m.Association), &m.Email, &m.Name)...); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// CountActiveByRole implements user.MembershipRepository.
func (r *membershipRepositoryImpl) CountActiveByRole(ctx context.Context, organisationID string, role user.Role) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM organisation_members WHERE organisation_id = $1 AND role = $2 AND is_active`,
		organisationID, role).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

func (r *membershipRepositoryImpl) execOne(ctx context.Context, op, query string, args ...any) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrAssociationNotFound
	}
	return nil
}

// UpdateRole implements user.MembershipRepository.
func (r *membershipRepositoryImpl) UpdateRole(ctx context.Context, userID, organisationID string, role user.Role, now time.Time) error {
	return r.execOne(ctx, "update member role",
		`UPDATE organisation_members SET role = $3, updated_at = $4 WHERE user_id = $1 AND organisation_id = $2 AND is_active`,
		userID, organisationID, role, now)
}

// Deactivate implements user.MembershipRepository.
func (r *membershipRepositoryImpl) Deactivate(ctx context.Context, userID, organisationID string, now time.Time) error {
	return r.execOne(ctx, "deactivate member",
		`UPDATE organisation_members SET is_active = FALSE, updated_at = $3 WHERE user_id = $1 AND organisation_id = $2 AND is_active`,
		userID, organisationID, now)
}

// Ban implements user.MembershipRepository.
func (r *membershipRepositoryImpl) Ban(ctx context.Context, req user.BanRequest, now time.Time) error {
	return r.execOne(ctx, "ban member", `
		UPDATE organisation_members
		SET active_before_ban = CASE WHEN banned THEN active_before_ban ELSE is_active END,
			is_active = FALSE, banned = TRUE, ban_reason = $3, ban_expires_at = $4,
			banned_by = $5, banned_at = $6, updated_at = $6
		WHERE user_id = $1 AND organisation_id = $2`,
		req.UserID, req.OrganisationID, req.Reason, req.ExpiresAt, req.BannedBy, now)
}

// Unban implements user.MembershipRepository.
func (r *membershipRepositoryImpl) Unban(ctx context.Context, userID, organisationID string, now time.Time) error {
	return r.execOne(ctx, "unban member", `
		UPDATE organisation_members
		SET is_active = active_before_ban, active_before_ban = FALSE, banned = FALSE,
			ban_reason = NULL, ban_expires_at = NULL, banned_by = NULL, banned_at = NULL, updated_at = $3
		WHERE user_id = $1 AND organisation_id = $2 AND banned`,
		userID, organisationID, now)
}

// DeleteByOrganisation implements user.MembershipRepository.
func (r *membershipRepositoryImpl) DeleteByOrganisation(ctx context.Context, organisationID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM organisation_members WHERE organisation_id = $1`, organisationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete organisation members: %w", err)
	}
	return tag.RowsAffected(), nil
}
