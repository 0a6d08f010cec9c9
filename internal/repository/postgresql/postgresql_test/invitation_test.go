package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/token"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingInvitation(email, orgID, inviterID string, expiresAt time.Time) invitation.Invitation {
	return invitation.Invitation{
		Token:          token.Generate(),
		Email:          email,
		Name:           "Alice",
		Role:           user.RoleEmployee,
		OrganisationID: orgID,
		InviterID:      inviterID,
		InviterName:    "Owner",
		InviterEmail:   "owner@x.com",
		Status:         invitation.StatusPending,
		ExpiresAt:      expiresAt,
		CreatedAt:      fixedNow,
	}
}

func TestInvitationRepository_OnePendingPerEmailAndOrganisation(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewInvitationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	_, err := repo.Create(ctx, newPendingInvitation("alice@x.com", org.ID, owner.ID, fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newPendingInvitation("ALICE@x.com", org.ID, owner.ID, fixedNow.Add(time.Hour)))
	assert.ErrorIs(t, err, invitation.ErrDuplicateInvitation)
}

func TestInvitationRepository_ExpireStalePendingFreesTheSlot(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewInvitationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	stale, err := repo.Create(ctx, newPendingInvitation("alice@x.com", org.ID, owner.ID, fixedNow.Add(-time.Second)))
	require.NoError(t, err)

	n, err := repo.ExpireStalePending(ctx, "Alice@X.com", org.ID, fixedNow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.Create(ctx, newPendingInvitation("alice@x.com", org.ID, owner.ID, fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	got, err := repo.GetByToken(ctx, stale.Token)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusExpired, got.Status)
}

func TestInvitationRepository_MarkAcceptedIsConditional(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewInvitationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	inv, err := repo.Create(ctx, newPendingInvitation("alice@x.com", org.ID, owner.ID, fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	accepted, err := repo.MarkAccepted(ctx, inv.ID, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	_, err = repo.MarkAccepted(ctx, inv.ID, fixedNow)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)

	_, err = repo.MarkRevoked(ctx, inv.Token, org.ID, fixedNow)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)
}

func TestInvitationRepository_MarkRevokedChecksOrganisation(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewInvitationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)
	other := createTestOrganisation(t, db, "globex", owner.ID)

	inv, err := repo.Create(ctx, newPendingInvitation("alice@x.com", org.ID, owner.ID, fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	_, err = repo.MarkRevoked(ctx, inv.Token, other.ID, fixedNow)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)

	revoked, err := repo.MarkRevoked(ctx, inv.Token, org.ID, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusRevoked, revoked.Status)
}

func TestInvitationRepository_ListAndSweep(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewInvitationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	live, err := repo.Create(ctx, newPendingInvitation("alice@x.com", org.ID, owner.ID, fixedNow.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newPendingInvitation("bob@x.com", org.ID, owner.ID, fixedNow.Add(-time.Minute)))
	require.NoError(t, err)

	pending, err := repo.ListPendingByOrganisation(ctx, org.ID, fixedNow)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, live.ID, pending[0].ID)

	mine, err := repo.ListPendingByEmail(ctx, "ALICE@x.com", fixedNow)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "acme", mine[0].OrganisationName)

	n, err := repo.SweepExpired(ctx, fixedNow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.SweepExpired(ctx, fixedNow)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvitationRepository_UpdateToken(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewInvitationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	inv, err := repo.Create(ctx, newPendingInvitation("alice@x.com", org.ID, owner.ID, fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	fresh := token.Generate()
	updated, err := repo.UpdateToken(ctx, inv.ID, fresh, fixedNow.Add(24*time.Hour), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, fresh, updated.Token)

	_, err = repo.GetByToken(ctx, inv.Token)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)
}
