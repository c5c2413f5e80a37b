package services

import (
	"context"
	"errors"
	"time"

	"github.com/natindo/poolmini/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyJoined = errors.New("already joined")
	ErrFull          = errors.New("capacity reached")
)

// Store persists pools, giveaways and their participants.
// ListPools and ListGiveaways return every record when chatID is 0.
type Store interface {
	InsertPool(ctx context.Context, p models.Pool) (int64, error)
	GetPool(ctx context.Context, id int64) (*models.Pool, error)
	GetPoolBySlug(ctx context.Context, slug string) (*models.Pool, error)
	ListPools(ctx context.Context, chatID int64) ([]models.Pool, error)
	DeletePool(ctx context.Context, chatID, id int64) error
	AddParticipant(ctx context.Context, p models.Participant) error
	CountParticipants(ctx context.Context, poolID int64) (int, error)
	PoolsToNotify(ctx context.Context, now time.Time, lead time.Duration) ([]models.Pool, error)
	MarkPoolNotified(ctx context.Context, id int64) error

	InsertGiveaway(ctx context.Context, g models.Giveaway) (int64, error)
	GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, error)
	ListGiveaways(ctx context.Context, chatID int64) ([]models.Giveaway, error)
	DeleteGiveaway(ctx context.Context, chatID, id int64) error
	AddEntry(ctx context.Context, e models.Entry, capacity int) error
	CountEntries(ctx context.Context, giveawayID int64) (int, error)

	Close() error
}
