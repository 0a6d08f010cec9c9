package user

import (
	"context"
	"time"
)

type UserRepository interface {
	// Create inserts a user. Requests provision through Provision; this path
	// serves seeding and tests.
	Create(ctx context.Context, u User) (User, error)

	// Provision inserts a pending user for an identity-provider account unless
	// its id or email is already present. created reports whether a row was written.
	Provision(ctx context.Context, u User) (created bool, err error)

	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// Activate sets status=active and is_active=true.
	Activate(ctx context.Context, userID string, now time.Time) error

	// SetCurrentOrganisationIfEmpty only writes when current_organisation_id is NULL.
	SetCurrentOrganisationIfEmpty(ctx context.Context, userID, organisationID string, now time.Time) error
	SetCurrentOrganisation(ctx context.Context, userID, organisationID string, now time.Time) error

	// UnsetCurrentOrganisation clears the pointer for one user when it points at organisationID.
	UnsetCurrentOrganisation(ctx context.Context, userID, organisationID string, now time.Time) error

	// ClearCurrentOrganisation clears the pointer for every user pointing at organisationID.
	ClearCurrentOrganisation(ctx context.Context, organisationID string, now time.Time) (int64, error)

	// SaveOTP stores a new sealed secret and resets the failed-attempt counter.
	SaveOTP(ctx context.Context, userID, sealedSecret string, expiresAt, now time.Time) error

	// RecordOTPFailure counts a failed guess and returns the new count. Reaching
	// maxAttempts clears the secret so the code can no longer be used.
	RecordOTPFailure(ctx context.Context, userID string, maxAttempts int, now time.Time) (int, error)

	// MarkEmailVerified sets email_verified and clears any OTP state.
	MarkEmailVerified(ctx context.Context, userID string, now time.Time) error
}

type MembershipRepository interface {
	// Get returns the association in any state.
	Get(ctx context.Context, userID, organisationID string) (Association, error)
	GetActive(ctx context.Context, userID, organisationID string) (Association, error)

	// Join inserts an active association or reactivates an inactive one,
	// clearing any ban. Callers check for a ban in force first.
	// An already active association is left untouched and added is false.
	Join(ctx context.Context, a Association) (added bool, err error)

	ListByOrganisation(ctx context.Context, organisationID string) ([]Member, error)
	CountActiveByRole(ctx context.Context, organisationID string, role Role) (int, error)
	UpdateRole(ctx context.Context, userID, organisationID string, role Role, now time.Time) error
	Deactivate(ctx context.Context, userID, organisationID string, now time.Time) error
	Ban(ctx context.Context, req BanRequest, now time.Time) error
	Unban(ctx context.Context, userID, organisationID string, now time.Time) error
	DeleteByOrganisation(ctx context.Context, organisationID string) (int64, error)
}
