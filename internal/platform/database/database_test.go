package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_AppliesInVersionOrderOnce(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "examguard.db"))
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"0002_add_note.sql":    {Data: []byte("ALTER TABLE t ADD COLUMN note TEXT;")},
		"0001_create.sql":      {Data: []byte("CREATE TABLE t (id TEXT PRIMARY KEY);")},
		"0001_create.down.sql": {Data: []byte("DROP TABLE t;")},
		"README.md":            {Data: []byte("ignored")},
		"sub/0003_ignored.sql": {Data: []byte("broken sql")},
	}

	require.NoError(t, Migrate(ctx, db, fsys, SQLite))
	require.NoError(t, Migrate(ctx, db, fsys, SQLite))

	var applied int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)

	_, err = db.ExecContext(ctx, "INSERT INTO t (id, note) VALUES ('a', 'n')")
	assert.NoError(t, err)
}

func TestMigrate_Errors(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = Migrate(ctx, db, fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}}, SQLite)
	assert.ErrorContains(t, err, "bad migration version")

	err = Migrate(ctx, db, fstest.MapFS{"0001_bad.sql": {Data: []byte("NOT SQL AT ALL")}}, SQLite)
	assert.ErrorContains(t, err, "apply migration 0001_bad.sql")
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	assert.Error(t, HealthCheck(nil)(context.Background()))

	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, HealthCheck(db)(context.Background()))
}
