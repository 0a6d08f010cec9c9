package postgresql_test

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/repository/postgresql"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganisationRepository_SlugUniqueAmongLive(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewOrganisationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	_, err := repo.Create(ctx, organisation.Organisation{Name: "Acme 2", Slug: "acme", OwnerID: owner.ID, CreatedAt: fixedNow})
	assert.ErrorIs(t, err, organisation.ErrSlugExists)

	require.NoError(t, repo.SoftDelete(ctx, org.ID, fixedNow))
	_, err = repo.GetByID(ctx, org.ID)
	assert.ErrorIs(t, err, organisation.ErrOrganisationNotFound)

	_, err = repo.Create(ctx, organisation.Organisation{Name: "Acme 2", Slug: "acme", OwnerID: owner.ID, CreatedAt: fixedNow})
	assert.NoError(t, err)
}

func TestOrganisationRepository_UpdateMergesSettings(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewOrganisationRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	_, err := repo.Update(ctx, org.ID, organisation.UpdateRequest{Settings: map[string]any{"timezone": "UTC"}}, fixedNow)
	require.NoError(t, err)

	name := "Acme Corp"
	updated, err := repo.Update(ctx, org.ID, organisation.UpdateRequest{Name: &name, Settings: map[string]any{"week_start": "monday"}}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)
	assert.Equal(t, "UTC", updated.Settings["timezone"])
	assert.Equal(t, "monday", updated.Settings["week_start"])
}

func TestOrganisationRepository_ListForUser(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgresql.NewOrganisationRepository(db)
	members := postgresql.NewMembershipRepository(db)
	users := postgresql.NewUserRepository(db)

	owner := createTestUser(t, db, "owner@x.com")
	acme := createTestOrganisation(t, db, "acme", owner.ID)
	globex := createTestOrganisation(t, db, "globex", owner.ID)

	for _, id := range []string{acme.ID, globex.ID} {
		_, err := members.Join(ctx, user.Association{UserID: owner.ID, OrganisationID: id, Role: user.RoleAdmin, JoinedAt: fixedNow})
		require.NoError(t, err)
	}
	require.NoError(t, users.SetCurrentOrganisation(ctx, owner.ID, globex.ID, fixedNow))

	list, err := repo.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, m := range list {
		assert.Equal(t, "admin", m.Role)
		assert.Equal(t, m.ID == globex.ID, m.IsCurrent)
	}
}

func TestProjectAndAuditRepositories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@x.com")
	org := createTestOrganisation(t, db, "acme", owner.ID)

	_, err := db.Exec(ctx, `INSERT INTO projects (id, organisation_id, name) VALUES (gen_random_uuid(), $1, 'Roadmap')`, org.ID)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO teams (id, organisation_id, name) VALUES (gen_random_uuid(), $1, 'Core')`, org.ID)
	require.NoError(t, err)

	result, err := postgresql.NewProjectRepository(db).ArchiveByOrganisation(ctx, org.ID, fixedNow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Projects)
	assert.EqualValues(t, 1, result.Teams)

	auditRepo := postgresql.NewAuditRepository(db)
	first := ulid.Make().String()
	second := ulid.Make().String()
	for _, id := range []string{first, second} {
		require.NoError(t, auditRepo.Create(ctx, audit.Entry{
			ID:             id,
			OrganisationID: &org.ID,
			ActorID:        &owner.ID,
			Action:         audit.ActionOrganisationUpdated,
			TargetType:     audit.TargetOrganisation,
			TargetID:       org.ID,
			CreatedAt:      fixedNow,
		}))
	}

	entries, err := auditRepo.ListByOrganisation(ctx, org.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)

	older, err := auditRepo.ListByOrganisation(ctx, org.ID, second, 10)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, first, older[0].ID)
}
