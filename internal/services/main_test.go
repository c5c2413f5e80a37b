package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/natindo/poolmini/internal/database"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.CreateSQLiteSchema(ctx, db))

	store := NewSQLiteStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}
