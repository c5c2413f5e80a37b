package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/natindo/poolmini/internal/models"
)

// SQLiteStore is the embedded Store used for single-node deployments and tests.
// Times are written in UTC so text comparisons order correctly.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertPool(ctx context.Context, p models.Pool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO pools (chat_id, kind, slug, creator_name, selected_image, name, description,
                   registration_start, registration_end, registration_enabled, buy_in, soft_cap,
                   rules_link, payout_address, token_symbol, notified, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, p.ChatID, p.Kind, p.Slug, p.CreatorName, p.SelectedImage, p.Name, p.Description,
		nullableUTC(p.RegistrationStart), nullableUTC(p.RegistrationEnd), p.RegistrationEnabled, p.BuyIn, p.SoftCap,
		p.RulesLink, p.PayoutAddress, p.TokenSymbol, p.Notified, p.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) GetPool(ctx context.Context, id int64) (*models.Pool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+poolColumns+` FROM pools WHERE id = ?`, id)
	return scanSQLPool(row)
}

func (s *SQLiteStore) GetPoolBySlug(ctx context.Context, slug string) (*models.Pool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+poolColumns+` FROM pools WHERE slug = ?`, slug)
	return scanSQLPool(row)
}

func (s *SQLiteStore) ListPools(ctx context.Context, chatID int64) ([]models.Pool, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+poolColumns+`
FROM pools
WHERE (? = 0 OR chat_id = ?)
ORDER BY created_at DESC, id DESC
`, chatID, chatID)
	if err != nil {
		return nil, err
	}
	return collectSQLPools(rows)
}

func (s *SQLiteStore) DeletePool(ctx context.Context, chatID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pools WHERE chat_id = ? AND id = ?`, chatID, id)
	return affectedOrNotFound(res, err)
}

func (s *SQLiteStore) AddParticipant(ctx context.Context, p models.Participant) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO pool_participants (pool_id, name, joined_at)
VALUES (?, ?, ?)
`, p.PoolID, p.Name, p.JoinedAt.UTC())
	if isSQLiteUnique(err) {
		return ErrAlreadyJoined
	}
	return err
}

func (s *SQLiteStore) CountParticipants(ctx context.Context, poolID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pool_participants WHERE pool_id = ?`, poolID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) PoolsToNotify(ctx context.Context, now time.Time, lead time.Duration) ([]models.Pool, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+poolColumns+`
FROM pools
WHERE notified = 0
  AND registration_enabled = 1
  AND chat_id <> 0
  AND registration_start > ?
  AND registration_start <= ?
ORDER BY registration_start
`, now.UTC(), now.Add(lead).UTC())
	if err != nil {
		return nil, err
	}
	return collectSQLPools(rows)
}

func (s *SQLiteStore) MarkPoolNotified(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pools SET notified = 1 WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) InsertGiveaway(ctx context.Context, g models.Giveaway) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO giveaways (chat_id, slug, creator_name, name, description, selected_image,
                       capacity, prize, draw_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, g.ChatID, g.Slug, g.CreatorName, g.Name, g.Description, g.SelectedImage,
		g.Capacity, g.Prize, nullableUTC(g.DrawAt), g.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = ?`, id)
	g, err := scanGiveaway(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func (s *SQLiteStore) ListGiveaways(ctx context.Context, chatID int64) ([]models.Giveaway, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+giveawayColumns+`
FROM giveaways
WHERE (? = 0 OR chat_id = ?)
ORDER BY created_at DESC, id DESC
`, chatID, chatID)
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

func (s *SQLiteStore) DeleteGiveaway(ctx context.Context, chatID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM giveaways WHERE chat_id = ? AND id = ?`, chatID, id)
	return affectedOrNotFound(res, err)
}

func (s *SQLiteStore) AddEntry(ctx context.Context, e models.Entry, capacity int) error {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO giveaway_entries (giveaway_id, name, entered_at)
SELECT ?, ?, ?
WHERE (SELECT COUNT(*) FROM giveaway_entries WHERE giveaway_id = ?) < ?
`, e.GiveawayID, e.Name, e.EnteredAt.UTC(), e.GiveawayID, capacity)
	if isSQLiteUnique(err) {
		return ErrAlreadyJoined
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFull
	}
	return nil
}

func (s *SQLiteStore) CountEntries(ctx context.Context, giveawayID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM giveaway_entries WHERE giveaway_id = ?`, giveawayID).Scan(&n)
	return n, err
}

func scanSQLPool(row *sql.Row) (*models.Pool, error) {
	p, err := scanPool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func collectSQLPools(rows *sql.Rows) ([]models.Pool, error) {
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

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isSQLiteUnique(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	code := sqlErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// nullableUTC converts an optional time into a driver value.
func nullableUTC(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
