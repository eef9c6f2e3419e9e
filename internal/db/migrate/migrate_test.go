package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemoryDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func TestRun_CreatesSchemaAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	require.NoError(t, Run(ctx, db))
	require.NoError(t, Run(ctx, db), "second Run")

	for _, table := range []string{"locations", "instant_readings", "hourly_readings", "daily_forecasts"} {
		var n int
		require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table))
		assert.Equal(t, 1, n, "table %s", table)
	}

	var versions []string
	require.NoError(t, db.Select(&versions, `SELECT version FROM schema_migrations ORDER BY version`))
	assert.Equal(t, []string{"0001"}, versions)
}

func TestRun_UnsupportedDriver(t *testing.T) {
	db := sqlx.NewDb(openMemoryDB(t).DB, "mysql")
	assert.Error(t, Run(context.Background(), db))
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{in: "0001_schema.sql", wantVersion: "0001", wantName: "schema", wantOK: true},
		{in: "0012_add_index.sql", wantVersion: "0012", wantName: "add_index", wantOK: true},
		{in: "1_short.sql", wantOK: false},
		{in: "0001_schema.txt", wantOK: false},
		{in: "README.md", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, n, ok := parseMigrationFilename(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantVersion, v)
			assert.Equal(t, tt.wantName, n)
		})
	}
}

func TestPendingMigrations_OrderedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0003_c.sql": {Data: []byte("SELECT 3;")},
		"m/0001_a.sql": {Data: []byte("SELECT 1;")},
		"m/0002_b.sql": {Data: []byte("SELECT 2;")},
		"m/notes.txt":  {Data: []byte("ignored")},
	}

	got, err := pendingMigrations(fsys, "m", map[string]bool{"0001": true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0002", got[0].version)
	assert.Equal(t, "0003", got[1].version)
	assert.Equal(t, "SELECT 3;", got[1].body)
}
