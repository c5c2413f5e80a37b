package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/models"
	"github.com/natindo/poolmini/internal/wizard"
)

const maxParticipantName = 64

var (
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrGiveawayClosed     = errors.New("giveaway already drawn")
	ErrInvalidName        = errors.New("invalid participant name")
	ErrUnknownKind        = errors.New("unknown wizard kind")
)

// SnapshotCache holds read copies of pools. Any Get error is a miss.
type SnapshotCache interface {
	Put(ctx context.Context, p models.Pool) error
	Get(ctx context.Context, id int64) (*models.Pool, error)
	Delete(ctx context.Context, id int64) error
}

// Owner identifies who finished a wizard: a Telegram chat or a web user.
type Owner struct {
	ChatID int64
	Name   string
}

// PoolService stores finished wizard aggregates and serves pools and
// giveaways to both hosts.
type PoolService struct {
	store  Store
	cache  SnapshotCache
	logger *zap.Logger
	now    func() time.Time
}

// NewPoolService wires a service. cache may be nil.
func NewPoolService(store Store, cache SnapshotCache, logger *zap.Logger) *PoolService {
	return &PoolService{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Finalize stores the finalized aggregate of a kind wizard and assigns the
// server-side fields.
func (s *PoolService) Finalize(ctx context.Context, kind wizard.Kind, owner Owner, data wizard.Fields) (models.Created, error) {
	now := s.now().UTC().Truncate(time.Second)

	switch kind {
	case wizard.KindPool, wizard.KindHostedPool:
		var draft models.PoolDraft
		if err := decodeDraft(data, &draft); err != nil {
			return models.Created{}, err
		}
		if strings.TrimSpace(draft.Name) == "" {
			return models.Created{}, errors.New("pool name missing from aggregate")
		}
		p := models.Pool{
			ChatID:              owner.ChatID,
			Kind:                string(kind),
			Slug:                makeSlug(draft.Name),
			CreatorName:         owner.Name,
			SelectedImage:       draft.SelectedImage,
			Name:                draft.Name,
			Description:         draft.Description,
			RegistrationStart:   draft.RegistrationStart,
			RegistrationEnd:     draft.RegistrationEnd,
			RegistrationEnabled: draft.RegistrationEnabled,
			BuyIn:               draft.BuyIn,
			SoftCap:             draft.SoftCap,
			RulesLink:           draft.RulesLink,
			PayoutAddress:       draft.PayoutAddress,
			TokenSymbol:         draft.TokenSymbol,
			CreatedAt:           now,
		}
		id, err := s.store.InsertPool(ctx, p)
		if err != nil {
			return models.Created{}, fmt.Errorf("insert pool: %w", err)
		}
		p.ID = id
		s.cachePut(ctx, p)

		s.logger.Info("pool created",
			zap.Int64("pool_id", id),
			zap.String("kind", string(kind)),
			zap.Int64("chat_id", owner.ChatID))
		return models.Created{Kind: string(kind), Pool: &p}, nil

	case wizard.KindGiveaway:
		var draft models.GiveawayDraft
		if err := decodeDraft(data, &draft); err != nil {
			return models.Created{}, err
		}
		if strings.TrimSpace(draft.Name) == "" {
			return models.Created{}, errors.New("giveaway name missing from aggregate")
		}
		g := models.Giveaway{
			ChatID:        owner.ChatID,
			Slug:          makeSlug(draft.Name),
			CreatorName:   owner.Name,
			Name:          draft.Name,
			Description:   draft.Description,
			SelectedImage: draft.SelectedImage,
			Capacity:      draft.Capacity,
			Prize:         draft.Prize,
			DrawAt:        draft.DrawAt,
			CreatedAt:     now,
		}
		id, err := s.store.InsertGiveaway(ctx, g)
		if err != nil {
			return models.Created{}, fmt.Errorf("insert giveaway: %w", err)
		}
		g.ID = id

		s.logger.Info("giveaway created",
			zap.Int64("giveaway_id", id),
			zap.Int64("chat_id", owner.ChatID))
		return models.Created{Kind: string(kind), Giveaway: &g}, nil
	}

	return models.Created{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// GetPool returns a pool with its participant count, from the cache when possible.
func (s *PoolService) GetPool(ctx context.Context, id int64) (*models.PoolWithCount, error) {
	p, err := s.lookupPool(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withCount(ctx, *p)
}

// GetPoolBySlug resolves a share slug.
func (s *PoolService) GetPoolBySlug(ctx context.Context, shareSlug string) (*models.PoolWithCount, error) {
	p, err := s.store.GetPoolBySlug(ctx, shareSlug)
	if err != nil {
		return nil, err
	}
	return s.withCount(ctx, *p)
}

// ListPools lists the pools of chatID, or all pools when chatID is 0.
func (s *PoolService) ListPools(ctx context.Context, chatID int64) ([]models.Pool, error) {
	return s.store.ListPools(ctx, chatID)
}

// DeletePool removes a pool owned by chatID and evicts its snapshot.
func (s *PoolService) DeletePool(ctx context.Context, chatID, id int64) error {
	if err := s.store.DeletePool(ctx, chatID, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.logger.Warn("cache delete failed", zap.Int64("pool_id", id), zap.Error(err))
		}
	}
	return nil
}

// JoinPool registers name in pool id while its registration window is open.
func (s *PoolService) JoinPool(ctx context.Context, id int64, name string) (*models.PoolWithCount, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxParticipantName {
		return nil, ErrInvalidName
	}

	p, err := s.lookupPool(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !p.RegistrationOpen(now) {
		return nil, ErrRegistrationClosed
	}

	err = s.store.AddParticipant(ctx, models.Participant{PoolID: id, Name: name, JoinedAt: now})
	if err != nil {
		return nil, err
	}
	s.logger.Info("pool joined", zap.Int64("pool_id", id), zap.String("name", name))
	return s.withCount(ctx, *p)
}

func (s *PoolService) GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, int, error) {
	g, err := s.store.GetGiveaway(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	n, err := s.store.CountEntries(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return g, n, nil
}

func (s *PoolService) ListGiveaways(ctx context.Context, chatID int64) ([]models.Giveaway, error) {
	return s.store.ListGiveaways(ctx, chatID)
}

func (s *PoolService) DeleteGiveaway(ctx context.Context, chatID, id int64) error {
	return s.store.DeleteGiveaway(ctx, chatID, id)
}

// EnterGiveaway adds name to giveaway id and returns the entry count.
func (s *PoolService) EnterGiveaway(ctx context.Context, id int64, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxParticipantName {
		return 0, ErrInvalidName
	}

	g, err := s.store.GetGiveaway(ctx, id)
	if err != nil {
		return 0, err
	}
	now := s.now()
	if g.DrawAt != nil && !now.Before(*g.DrawAt) {
		return 0, ErrGiveawayClosed
	}

	if err := s.store.AddEntry(ctx, models.Entry{GiveawayID: id, Name: name, EnteredAt: now}, g.Capacity); err != nil {
		return 0, err
	}
	return s.store.CountEntries(ctx, id)
}

func (s *PoolService) lookupPool(ctx context.Context, id int64) (*models.Pool, error) {
	if s.cache != nil {
		if p, err := s.cache.Get(ctx, id); err == nil {
			return p, nil
		}
	}
	p, err := s.store.GetPool(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, *p)
	return p, nil
}

func (s *PoolService) withCount(ctx context.Context, p models.Pool) (*models.PoolWithCount, error) {
	n, err := s.store.CountParticipants(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &models.PoolWithCount{Pool: p, Participants: n, Filled: p.SoftCap > 0 && n >= p.SoftCap}, nil
}

// cachePut never fails the caller; the store stays the source of truth.
func (s *PoolService) cachePut(ctx context.Context, p models.Pool) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, p); err != nil {
		s.logger.Warn("cache put failed", zap.Int64("pool_id", p.ID), zap.Error(err))
	}
}

func decodeDraft(data wizard.Fields, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "field",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(data)); err != nil {
		return fmt.Errorf("decode aggregate: %w", err)
	}
	return nil
}

func makeSlug(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "event"
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
