package testutils

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/scry-engine/internal/platform/migrations"
	"github.com/phrazzld/scry-engine/internal/platform/postgres"
	"github.com/phrazzld/scry-engine/internal/platform/sqlite"
	"github.com/stretchr/testify/require"
)

// TestDatabaseURLEnv names the variable holding a PostgreSQL URL for
// integration tests.
const TestDatabaseURLEnv = "SCRY_TEST_DATABASE_URL"

// NewSQLiteDB returns a migrated SQLite database in a temporary directory.
// It is closed when the test ends.
func NewSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, "file:"+filepath.Join(t.TempDir(), "scry.db"), 1)
	require.NoError(t, err, "Failed to open SQLite database")
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.New(db, "sqlite", nil)
	require.NoError(t, err, "Failed to create migrator")
	_, err = m.Up(ctx)
	require.NoError(t, err, "Failed to apply migrations")

	return db
}

// NewPostgresDB returns a migrated PostgreSQL database from
// SCRY_TEST_DATABASE_URL, skipping the test when the variable is unset.
// Tables are truncated when the test ends.
func NewPostgresDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping PostgreSQL test", TestDatabaseURLEnv)
	}
	ctx := context.Background()

	db, err := postgres.Open(ctx, url, 5)
	require.NoError(t, err, "Failed to open PostgreSQL database")

	m, err := migrations.New(db, "postgres", nil)
	require.NoError(t, err, "Failed to create migrator")
	_, err = m.Up(ctx)
	require.NoError(t, err, "Failed to apply migrations")

	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `TRUNCATE review_results, cards`)
		_ = db.Close()
	})
	return db
}
