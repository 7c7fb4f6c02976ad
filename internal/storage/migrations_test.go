package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMigrations(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	version, err := SchemaVersion(ctx, storage.DB())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	// Re-applying is a no-op
	require.NoError(t, ApplyMigrations(ctx, storage.DB()))

	var applied int
	require.NoError(t, storage.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&applied))
	assert.Equal(t, len(AllMigrations), applied)

	for _, table := range []string{"documents", "chunks", "chunks_fts", "settings"} {
		var name string
		err := storage.DB().QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	db := storage.DB()

	require.NoError(t, RollbackMigration(ctx, db))
	version, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	require.NoError(t, ApplyMigrations(ctx, db))
	version, err = SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	// Roll all the way back
	require.NoError(t, RollbackMigration(ctx, db))
	require.NoError(t, RollbackMigration(ctx, db))
	version, err = SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", version)

	assert.Error(t, RollbackMigration(ctx, db))
}

func TestMigrationsAreOrdered(t *testing.T) {
	for i := 1; i < len(AllMigrations); i++ {
		assert.Less(t, AllMigrations[i-1].Version, AllMigrations[i].Version)
	}
	assert.Equal(t, CurrentSchemaVersion, AllMigrations[len(AllMigrations)-1].Version)
}
