package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `
	id, email, name, status, is_active, current_organisation_id::text, email_verified,
	otp_secret, otp_expires_at, otp_attempts, created_at, updated_at`

type userRepositoryImpl struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) user.UserRepository {
	return &userRepositoryImpl{db: db}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Status, &u.IsActive, &u.CurrentOrganisationID,
		&u.EmailVerified, &u.OTPSecret, &u.OTPExpiresAt, &u.OTPAttempts, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func userNotFoundOr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrUserNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Create implements user.UserRepository.
func (r *userRepositoryImpl) Create(ctx context.Context, u user.User) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	if u.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return user.User{}, fmt.Errorf("failed to generate user id: %w", err)
		}
		u.ID = id.String()
	}
	if u.Status == "" {
		u.Status = user.StatusPending
	}

	query := `
		INSERT INTO users (id, email, name, status, is_active, email_verified)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		RETURNING` + userColumns

	created, err := scanUser(q.QueryRow(ctx, query, u.ID, u.Email, u.Name, u.Status, u.IsActive, u.EmailVerified))
	if err != nil {
		return user.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetByID implements user.UserRepository.
func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	u, err := scanUser(q.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return user.User{}, userNotFoundOr(err, "get user by id")
	}
	return u, nil
}

// GetByEmail implements user.UserRepository.
func (r *userRepositoryImpl) GetByEmail(ctx context.Context, email string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	u, err := scanUser(q.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return user.User{}, userNotFoundOr(err, "get user by email")
	}
	return u, nil
}

// Provision implements user.UserRepository.
func (r *userRepositoryImpl) Provision(ctx context.Context, u user.User) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO users (id, email, name, status)
		VALUES ($1, lower($2), $3, 'pending')
		ON CONFLICT DO NOTHING
		RETURNING id`

	var id string
	if err := q.QueryRow(ctx, query, u.ID, u.Email, u.Name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to provision user: %w", err)
	}
	return true, nil
}

func (r *userRepositoryImpl) execOne(ctx context.Context, op, query string, args ...any) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// Activate implements user.UserRepository.
func (r *userRepositoryImpl) Activate(ctx context.Context, userID string, now time.Time) error {
	return r.execOne(ctx, "activate user",
		`UPDATE users SET status = 'active', is_active = TRUE, updated_at = $2 WHERE id = $1`,
		userID, now)
}

// SetCurrentOrganisationIfEmpty implements user.UserRepository.
func (r *userRepositoryImpl) SetCurrentOrganisationIfEmpty(ctx context.Context, userID, organisationID string, now time.Time) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx,
		`UPDATE users SET current_organisation_id = $2, updated_at = $3 WHERE id = $1 AND current_organisation_id IS NULL`,
		userID, organisationID, now)
	if err != nil {
		return fmt.Errorf("failed to set current organisation: %w", err)
	}
	return nil
}

// SetCurrentOrganisation implements user.UserRepository.
func (r *userRepositoryImpl) SetCurrentOrganisation(ctx context.Context, userID, organisationID string, now time.Time) error {
	return r.execOne(ctx, "set current organisation",
		`UPDATE users SET current_organisation_id = $2, updated_at = $3 WHERE id = $1`,
		userID, organisationID, now)
}

// UnsetCurrentOrganisation implements user.UserRepository.
func (r *userRepositoryImpl) UnsetCurrentOrganisation(ctx context.Context, userID, organisationID string, now time.Time) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx,
		`UPDATE users SET current_organisation_id = NULL, updated_at = $3 WHERE id = $1 AND current_organisation_id = $2`,
		userID, organisationID, now)
	if err != nil {
		return fmt.Errorf("failed to unset current organisation: %w", err)
	}
	return nil
}

// ClearCurrentOrganisation implements user.UserRepository.
func (r *userRepositoryImpl) ClearCurrentOrganisation(ctx context.Context, organisationID string, now time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE users SET current_organisation_id = NULL, updated_at = $2 WHERE current_organisation_id = $1`,
		organisationID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear current organisation: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SaveOTP implements user.UserRepository.
func (r *userRepositoryImpl) SaveOTP(ctx context.Context, userID, sealedSecret string, expiresAt, now time.Time) error {
	return r.execOne(ctx, "save otp",
		`UPDATE users SET otp_secret = $2, otp_expires_at = $3, otp_attempts = 0, updated_at = $4 WHERE id = $1`,
		userID, sealedSecret, expiresAt, now)
}

// RecordOTPFailure implements user.UserRepository.
func (r *userRepositoryImpl) RecordOTPFailure(ctx context.Context, userID string, maxAttempts int, now time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	// SET expressions read the pre-update row, so both CASEs see the same count.
	query := `
		UPDATE users
		SET otp_attempts = otp_attempts + 1,
			otp_secret = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_secret END,
			otp_expires_at = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_expires_at END,
			updated_at = $3
		WHERE id = $1
		RETURNING otp_attempts`

	var attempts int
	if err := q.QueryRow(ctx, query, userID, maxAttempts, now).Scan(&attempts); err != nil {
		return 0, userNotFoundOr(err, "record otp failure")
	}
	return attempts, nil
}

// MarkEmailVerified implements user.UserRepository.
func (r *userRepositoryImpl) MarkEmailVerified(ctx context.Context, userID string, now time.Time) error {
	return r.execOne(ctx, "mark email verified",
		`UPDATE users SET email_verified = TRUE, otp_secret = NULL, otp_expires_at = NULL, otp_attempts = 0, updated_at = $2 WHERE id = $1`,
		userID, now)
}
