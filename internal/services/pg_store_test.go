package services

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natindo/poolmini/internal/database"
	"github.com/natindo/poolmini/internal/models"
)

// Runs only against a disposable database named by POOLMINI_TEST_DATABASE_URL.
func newPGStore(t *testing.T) *PGStore {
	t.Helper()
	url := os.Getenv("POOLMINI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("POOLMINI_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.ConnectPostgres(ctx, url)
	require.NoError(t, err)
	require.NoError(t, database.CreatePostgresSchema(ctx, pool))

	store := NewPGStore(pool)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPGStore_PoolAndGiveaway(t *testing.T) {
	ctx := context.Background()
	s := newPGStore(t)
	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	chatID := time.Now().UnixNano()

	id, err := s.InsertPool(ctx, samplePool(chatID, "pg-pool-"+suffix, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	t.Cleanup(func() { s.DeletePool(context.Background(), chatID, id) })

	got, err := s.GetPoolBySlug(ctx, "pg-pool-"+suffix)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	list, err := s.ListPools(ctx, chatID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.AddParticipant(ctx, models.Participant{PoolID: id, Name: "alice", JoinedAt: time.Now()}))
	assert.ErrorIs(t, s.AddParticipant(ctx, models.Participant{PoolID: id, Name: "alice", JoinedAt: time.Now()}), ErrAlreadyJoined)

	gid, err := s.InsertGiveaway(ctx, models.Giveaway{
		ChatID: chatID, Slug: "pg-ga-" + suffix, Name: "GA", SelectedImage: "template-1",
		Capacity: 1, Prize: "cup", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.DeleteGiveaway(context.Background(), chatID, gid) })

	require.NoError(t, s.AddEntry(ctx, models.Entry{GiveawayID: gid, Name: "a", EnteredAt: time.Now()}, 1))
	assert.ErrorIs(t, s.AddEntry(ctx, models.Entry{GiveawayID: gid, Name: "b", EnteredAt: time.Now()}, 1), ErrFull)
}
