package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsIsRepeatable(t *testing.T) {
	database, err := InitDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(database.DB))
	require.NoError(t, RunMigrations(database.DB))

	var tables []string
	err = database.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('tournaments', 'participants', 'matches') ORDER BY name")
	require.NoError(t, err)
	assert.Equal(t, []string{"matches", "participants", "tournaments"}, tables)

	var foreignKeys int
	require.NoError(t, database.Get(&foreignKeys, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, foreignKeys)
}
