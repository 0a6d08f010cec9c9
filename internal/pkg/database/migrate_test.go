package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/taskflow?sslmode=disable", migrateURL("postgres://u:p@db:5432/taskflow?sslmode=disable"))
	assert.Equal(t, "pgx5://u:p@db/taskflow", migrateURL("postgresql://u:p@db/taskflow"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 4)
}
