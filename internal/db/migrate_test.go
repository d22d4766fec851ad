package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/printshop?sslmode=disable", migrateURL("postgres://u:p@localhost:5432/printshop?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/printshop", migrateURL("postgresql://localhost/printshop"))
	require.Equal(t, "pgx5://localhost/printshop", migrateURL("pgx5://localhost/printshop"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	require.NoError(t, err)
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	require.True(t, names["000001_pricing.up.sql"])
	require.True(t, names["000001_pricing.down.sql"])
}
