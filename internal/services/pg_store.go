package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/natindo/poolmini/internal/models"
)

const pgUniqueViolation = "23505"

const poolColumns = `id, chat_id, kind, slug, creator_name, selected_image, name, description,
       registration_start, registration_end, registration_enabled, buy_in, soft_cap,
       rules_link, payout_address, token_symbol, notified, created_at`

const giveawayColumns = `id, chat_id, slug, creator_name, name, description, selected_image,
       capacity, prize, draw_at, created_at`

// PGStore is the Postgres Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// InsertPool stores p and returns its new ID.
func (s *PGStore) InsertPool(ctx context.Context, p models.Pool) (int64, error) {
	var newID int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO pools (chat_id, kind, slug, creator_name, selected_image, name, description,
                   registration_start, registration_end, registration_enabled, buy_in, soft_cap,
                   rules_link, payout_address, token_symbol, notified, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id
`, p.ChatID, p.Kind, p.Slug, p.CreatorName, p.SelectedImage, p.Name, p.Description,
		p.RegistrationStart, p.RegistrationEnd, p.RegistrationEnabled, p.BuyIn, p.SoftCap,
		p.RulesLink, p.PayoutAddress, p.TokenSymbol, p.Notified, p.CreatedAt).Scan(&newID)
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// GetPool returns the pool with id.
func (s *PGStore) GetPool(ctx context.Context, id int64) (*models.Pool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE id = $1`, id)
	return scanPGPool(row)
}

func (s *PGStore) GetPoolBySlug(ctx context.Context, slug string) (*models.Pool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE slug = $1`, slug)
	return scanPGPool(row)
}

// ListPools returns the pools of chatID, newest first.
func (s *PGStore) ListPools(ctx context.Context, chatID int64) ([]models.Pool, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+poolColumns+`
FROM pools
WHERE ($1::bigint = 0 OR chat_id = $1::bigint)
ORDER BY created_at DESC, id DESC
`, chatID)
	if err != nil {
		return nil, err
	}
	return collectPGPools(rows)
}

// DeletePool removes a pool only if it belongs to chatID.
func (s *PGStore) DeletePool(ctx context.Context, chatID, id int64) error {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM pools
WHERE chat_id = $1 AND id = $2
`, chatID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AddParticipant(ctx context.Context, p models.Participant) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO pool_participants (pool_id, name, joined_at)
VALUES ($1, $2, $3)
`, p.PoolID, p.Name, p.JoinedAt)
	if isPGUnique(err) {
		return ErrAlreadyJoined
	}
	return err
}

func (s *PGStore) CountParticipants(ctx context.Context, poolID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pool_participants WHERE pool_id = $1`, poolID).Scan(&n)
	return n, err
}

// PoolsToNotify finds pools whose registration opens within lead of now
// and whose creator chat has not been reminded yet.
func (s *PGStore) PoolsToNotify(ctx context.Context, now time.Time, lead time.Duration) ([]models.Pool, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+poolColumns+`
FROM pools
WHERE notified = false
  AND registration_enabled = true
  AND chat_id <> 0
  AND registration_start > $1
  AND registration_start <= $2
ORDER BY registration_start
`, now, now.Add(lead))
	if err != nil {
		return nil, err
	}
	return collectPGPools(rows)
}

func (s *PGStore) MarkPoolNotified(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
UPDATE pools
SET notified = true
WHERE id = $1
`, id)
	return err
}

func (s *PGStore) InsertGiveaway(ctx context.Context, g models.Giveaway) (int64, error) {
	var newID int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO giveaways (chat_id, slug, creator_name, name, description, selected_image,
                       capacity, prize, draw_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id
`, g.ChatID, g.Slug, g.CreatorName, g.Name, g.Description, g.SelectedImage,
		g.Capacity, g.Prize, g.DrawAt, g.CreatedAt).Scan(&newID)
	return newID, err
}

func (s *PGStore) GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = $1`, id)
	g, err := scanGiveaway(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func (s *PGStore) ListGiveaways(ctx context.Context, chatID int64) ([]models.Giveaway, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+giveawayColumns+`
FROM giveaways
WHERE ($1::bigint = 0 OR chat_id = $1::bigint)
ORDER BY created_at DESC, id DESC
`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *g)
	}
	return result, rows.Err()
}

func (s *PGStore) DeleteGiveaway(ctx context.Context, chatID, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM giveaways WHERE chat_id = $1 AND id = $2`, chatID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddEntry inserts e only while the giveaway has fewer than capacity entries.
func (s *PGStore) AddEntry(ctx context.Context, e models.Entry, capacity int) error {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO giveaway_entries (giveaway_id, name, entered_at)
SELECT $1::bigint, $2::text, $3::timestamptz
WHERE (SELECT COUNT(*) FROM giveaway_entries WHERE giveaway_id = $1::bigint) < $4::bigint
`, e.GiveawayID, e.Name, e.EnteredAt, int64(capacity))
	if isPGUnique(err) {
		return ErrAlreadyJoined
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFull
	}
	return nil
}

func (s *PGStore) CountEntries(ctx context.Context, giveawayID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM giveaway_entries WHERE giveaway_id = $1`, giveawayID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPool(row rowScanner) (*models.Pool, error) {
	var p models.Pool
	err := row.Scan(
		&p.ID, &p.ChatID, &p.Kind, &p.Slug, &p.CreatorName, &p.SelectedImage, &p.Name, &p.Description,
		&p.RegistrationStart, &p.RegistrationEnd, &p.RegistrationEnabled, &p.BuyIn, &p.SoftCap,
		&p.RulesLink, &p.PayoutAddress, &p.TokenSymbol, &p.Notified, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanGiveaway(row rowScanner) (*models.Giveaway, error) {
	var g models.Giveaway
	err := row.Scan(
		&g.ID, &g.ChatID, &g.Slug, &g.CreatorName, &g.Name, &g.Description, &g.SelectedImage,
		&g.Capacity, &g.Prize, &g.DrawAt, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanPGPool(row pgx.Row) (*models.Pool, error) {
	p, err := scanPool(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func collectPGPools(rows pgx.Rows) ([]models.Pool, error) {
	defer rows.Close()

	var result []models.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func isPGUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
