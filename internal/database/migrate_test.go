package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	assert.Equal(t, "001_schema.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestSchemaDeclaresCoreTables(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)

	schema := string(body)
	for _, table := range []string{"events", "guests", "activity_logs"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, schema, "UNIQUE (event_id, email)")
}
