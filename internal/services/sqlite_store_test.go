package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natindo/poolmini/internal/models"
)

func ptr(t time.Time) *time.Time { return &t }

func samplePool(chatID int64, slug string, start time.Time) models.Pool {
	return models.Pool{
		ChatID:              chatID,
		Kind:                "pool",
		Slug:                slug,
		SelectedImage:       "template-1",
		Name:                "Friday Pool",
		RegistrationStart:   ptr(start),
		RegistrationEnd:     ptr(start.Add(2 * time.Hour)),
		RegistrationEnabled: true,
		BuyIn:               10.5,
		SoftCap:             3,
		CreatedAt:           time.Now(),
	}
}

func TestSQLiteStore_PoolLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	start := time.Date(2024, 11, 25, 16, 45, 0, 0, time.UTC)

	id, err := s.InsertPool(ctx, samplePool(42, "friday-pool-1", start))
	require.NoError(t, err)

	got, err := s.GetPool(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Friday Pool", got.Name)
	assert.Equal(t, 10.5, got.BuyIn)
	assert.Equal(t, 3, got.SoftCap)
	require.NotNil(t, got.RegistrationStart)
	assert.True(t, start.Equal(*got.RegistrationStart))

	bySlug, err := s.GetPoolBySlug(ctx, "friday-pool-1")
	require.NoError(t, err)
	assert.Equal(t, id, bySlug.ID)

	_, err = s.GetPool(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.InsertPool(ctx, samplePool(7, "other-pool", start))
	require.NoError(t, err)

	mine, err := s.ListPools(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := s.ListPools(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, s.DeletePool(ctx, 7, id), ErrNotFound)
	require.NoError(t, s.DeletePool(ctx, 42, id))
	_, err = s.GetPool(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Participants(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	id, err := s.InsertPool(ctx, samplePool(1, "p", time.Now()))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.AddParticipant(ctx, models.Participant{PoolID: id, Name: "alice", JoinedAt: now}))
	require.NoError(t, s.AddParticipant(ctx, models.Participant{PoolID: id, Name: "bob", JoinedAt: now}))
	err = s.AddParticipant(ctx, models.Participant{PoolID: id, Name: "alice", JoinedAt: now})
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	n, err := s.CountParticipants(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteStore_PoolsToNotify(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	now := time.Date(2024, 11, 25, 16, 0, 0, 0, time.UTC)

	soon, err := s.InsertPool(ctx, samplePool(1, "soon", now.Add(10*time.Minute)))
	require.NoError(t, err)
	_, err = s.InsertPool(ctx, samplePool(1, "later", now.Add(3*time.Hour)))
	require.NoError(t, err)
	_, err = s.InsertPool(ctx, samplePool(0, "web", now.Add(5*time.Minute)))
	require.NoError(t, err)

	due, err := s.PoolsToNotify(ctx, now, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, soon, due[0].ID)

	require.NoError(t, s.MarkPoolNotified(ctx, soon))
	due, err = s.PoolsToNotify(ctx, now, 15*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSQLiteStore_GiveawayCapacity(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	id, err := s.InsertGiveaway(ctx, models.Giveaway{
		ChatID:        5,
		Slug:          "ga",
		Name:          "Giveaway",
		SelectedImage: "template-2",
		Capacity:      2,
		Prize:         "T-shirt",
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.AddEntry(ctx, models.Entry{GiveawayID: id, Name: "a", EnteredAt: now}, 2))
	assert.ErrorIs(t, s.AddEntry(ctx, models.Entry{GiveawayID: id, Name: "a", EnteredAt: now}, 2), ErrAlreadyJoined)
	require.NoError(t, s.AddEntry(ctx, models.Entry{GiveawayID: id, Name: "b", EnteredAt: now}, 2))
	assert.ErrorIs(t, s.AddEntry(ctx, models.Entry{GiveawayID: id, Name: "c", EnteredAt: now}, 2), ErrFull)

	n, err := s.CountEntries(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := s.ListGiveaways(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteGiveaway(ctx, 5, id))
	_, err = s.GetGiveaway(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
