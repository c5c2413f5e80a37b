package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQLiteSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "pools.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateSQLiteSchema(ctx, db))
	require.NoError(t, CreateSQLiteSchema(ctx, db))

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('pools', 'pool_participants', 'giveaways', 'giveaway_entries')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestConnectPostgres_BadURL(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), "://not a url")
	assert.Error(t, err)
}
