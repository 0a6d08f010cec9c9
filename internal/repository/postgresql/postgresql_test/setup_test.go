package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	setupOnce sync.Once
	setupErr  error
	container testcontainers.Container
	testDB    *database.DB
)

func TestMain(m *testing.M) {
	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	if container != nil {
		if err := container.Terminate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate postgres container: %v\n", err)
		}
	}

	os.Exit(code)
}

// setupDB returns a migrated database shared by every test in the package.
// TEST_DATABASE_URL points the tests at an existing server instead of a container.
func setupDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	setupOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if dsn == "" {
			dsn, setupErr = startPostgres(ctx)
			if setupErr != nil {
				return
			}
		}
		if setupErr = database.Migrate(dsn); setupErr != nil {
			return
		}
		testDB, setupErr = database.NewPostgreSQLDB(ctx, dsn)
	})
	require.NoError(t, setupErr)

	truncateAll(t)
	return testDB
}

func startPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "taskflow",
			"POSTGRES_PASSWORD": "taskflow",
			"POSTGRES_DB":       "taskflow_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	container = c

	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("postgres://taskflow:taskflow@%s:%s/taskflow_test?sslmode=disable", host, port.Port()), nil
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(context.Background(), `
		TRUNCATE TABLE audit_logs, invitations, organisation_members, projects, teams, organisations, users CASCADE`)
	require.NoError(t, err)
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func createTestUser(t *testing.T, db *database.DB, email string) user.User {
	t.Helper()
	u, err := postgresql.NewUserRepository(db).Create(context.Background(), user.User{Email: email, Name: email})
	require.NoError(t, err)
	return u
}

func createTestOrganisation(t *testing.T, db *database.DB, slug, ownerID string) organisation.Organisation {
	t.Helper()
	o, err := postgresql.NewOrganisationRepository(db).Create(context.Background(), organisation.Organisation{
		Name:      slug,
		Slug:      slug,
		OwnerID:   ownerID,
		CreatedAt: fixedNow,
	})
	require.NoError(t, err)
	return o
}
