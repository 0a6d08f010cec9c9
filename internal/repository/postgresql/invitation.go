package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invitationColumns = `
	id, token, email, name, role, organisation_id, COALESCE(inviter_id::text, ''), inviter_name, inviter_email,
	status, is_new_user, custom_message, expires_at, accepted_at, revoked_at, created_at, updated_at`

type invitationRepositoryImpl struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository instance
func NewInvitationRepository(db *database.DB) invitation.InvitationRepository {
	return &invitationRepositoryImpl{db: db}
}

func scanInvitation(row pgx.Row, extra ...any) (invitation.Invitation, error) {
	var inv invitation.Invitation
	dest := []any{
		&inv.ID, &inv.Token, &inv.Email, &inv.Name, &inv.Role, &inv.OrganisationID,
		&inv.InviterID, &inv.InviterName, &inv.InviterEmail, &inv.Status, &inv.IsNewUser,
		&inv.CustomMessage, &inv.ExpiresAt, &inv.AcceptedAt, &inv.RevokedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return inv, err
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return invitation.ErrInvitationNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Create implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) Create(ctx context.Context, inv invitation.Invitation) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	if inv.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return invitation.Invitation{}, fmt.Errorf("failed to generate invitation id: %w", err)
		}
		inv.ID = id.String()
	}

	query := `
		INSERT INTO invitations (
			id, token, email, name, role, organisation_id, inviter_id, inviter_name, inviter_email,
			status, is_new_user, custom_message, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING` + invitationColumns

	created, err := scanInvitation(q.QueryRow(ctx, query,
		inv.ID, inv.Token, inv.Email, inv.Name, inv.Role, inv.OrganisationID,
		inv.InviterID, inv.InviterName, inv.InviterEmail, inv.Status, inv.IsNewUser,
		inv.CustomMessage, inv.ExpiresAt, inv.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "invitations_one_pending_key") {
			return invitation.Invitation{}, invitation.ErrDuplicateInvitation
		}
		return invitation.Invitation{}, fmt.Errorf("failed to create invitation: %w", err)
	}

	return created, nil
}

// GetByToken implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) GetByToken(ctx context.Context, token string) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + invitationColumns + ` FROM invitations WHERE token = $1`

	inv, err := scanInvitation(q.QueryRow(ctx, query, token))
	if err != nil {
		return invitation.Invitation{}, notFoundOr(err, "get invitation by token")
	}
	return inv, nil
}

// GetPendingByTokenAndEmail implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) GetPendingByTokenAndEmail(ctx context.Context, token, email string) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + invitationColumns + `
		FROM invitations
		WHERE token = $1 AND lower(email) = lower($2) AND status = 'pending'`

	inv, err := scanInvitation(q.QueryRow(ctx, query, token, email))
	if err != nil {
		return invitation.Invitation{}, notFoundOr(err, "get pending invitation")
	}
	return inv, nil
}

// ListPendingByOrganisation implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) ListPendingByOrganisation(ctx context.Context, organisationID string, now time.Time) ([]invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + invitationColumns + `
		FROM invitations
		WHERE organisation_id = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC, id DESC`

	rows, err := q.Query(ctx, query, organisationID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	defer rows.Close()

	invitations := []invitation.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

// ListPendingByEmail implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]invitation.InvitationWithOrganisation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			i.id, i.token, i.email, i.name, i.role, i.organisation_id, COALESCE(i.inviter_id::text, ''), i.inviter_name, i.inviter_email,
			i.status, i.is_new_user, i.custom_message, i.expires_at, i.accepted_at, i.revoked_at, i.created_at, i.updated_at,
			o.name
		FROM invitations i
		JOIN organisations o ON o.id = i.organisation_id AND o.deleted_at IS NULL
		WHERE lower(i.email) = lower($1) AND i.status = 'pending' AND i.expires_at > $2
		ORDER BY i.created_at DESC`

	rows, err := q.Query(ctx, query, email, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations by email: %w", err)
	}
	defer rows.Close()

	invitations := []invitation.InvitationWithOrganisation{}
	for rows.Next() {
		var orgName string
		inv, err := scanInvitation(rows, &orgName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, invitation.InvitationWithOrganisation{Invitation: inv, OrganisationName: orgName})
	}

	return invitations, rows.Err()
}

// MarkAccepted implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) MarkAccepted(ctx context.Context, id string, now time.Time) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE invitations
		SET status = 'accepted', accepted_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending' AND expires_at > $2
		RETURNING` + invitationColumns

	inv, err := scanInvitation(q.QueryRow(ctx, query, id, now))
	if err != nil {
		return invitation.Invitation{}, notFoundOr(err, "accept invitation")
	}
	return inv, nil
}

// MarkRevoked implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) MarkRevoked(ctx context.Context, token, organisationID string, now time.Time) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE invitations
		SET status = 'revoked', revoked_at = $3, updated_at = $3
		WHERE token = $1 AND organisation_id = $2 AND status = 'pending'
		RETURNING` + invitationColumns

	inv, err := scanInvitation(q.QueryRow(ctx, query, token, organisationID, now))
	if err != nil {
		return invitation.Invitation{}, notFoundOr(err, "revoke invitation")
	}
	return inv, nil
}

// MarkExpired implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) MarkExpired(ctx context.Context, id string, now time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE invitations SET status = 'expired', updated_at = $2 WHERE id = $1 AND status = 'pending'`

	tag, err := q.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to expire invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return invitation.ErrInvitationNotFound
	}
	return nil
}

// ExpireStalePending implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) ExpireStalePending(ctx context.Context, email, organisationID string, now time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE invitations
		SET status = 'expired', updated_at = $3
		WHERE lower(email) = lower($1) AND organisation_id = $2 AND status = 'pending' AND expires_at <= $3`

	tag, err := q.Exec(ctx, query, email, organisationID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SweepExpired implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE invitations SET status = 'expired', updated_at = $1 WHERE status = 'pending' AND expires_at <= $1`

	tag, err := q.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateToken implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) UpdateToken(ctx context.Context, id, newToken string, expiresAt, now time.Time) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE invitations
		SET token = $2, expires_at = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING` + invitationColumns

	inv, err := scanInvitation(q.QueryRow(ctx, query, id, newToken, expiresAt, now))
	if err != nil {
		return invitation.Invitation{}, notFoundOr(err, "update invitation token")
	}
	return inv, nil
}

// RevokeAllPendingByOrganisation implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) RevokeAllPendingByOrganisation(ctx context.Context, organisationID string, now time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE invitations
		SET status = 'revoked', revoked_at = $2, updated_at = $2
		WHERE organisation_id = $1 AND status = 'pending'`

	tag, err := q.Exec(ctx, query, organisationID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke organisation invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}
