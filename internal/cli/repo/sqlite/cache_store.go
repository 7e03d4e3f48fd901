package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/cache"
)

// CacheStore persists the summaries cache in a per-user SQLite file so it
// survives between CLI runs.
type CacheStore struct {
	db    *sql.DB
	login string
	now   func() time.Time
}

var _ cache.Store = (*CacheStore)(nil)

// OpenForUser opens (creating when needed) <base>/<login>/client.sqlite and
// returns the store together with the database path.
func OpenForUser(base, login string) (*CacheStore, string, error) {
	if login == "" {
		return nil, "", errors.New("empty login for user store")
	}
	if base == "" {
		return nil, "", errors.New("empty client db path")
	}
	dir := filepath.Join(base, safeDirName(login))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	dbPath := filepath.Join(dir, "client.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", err
	}
	// single connection: concurrent writers would hit SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return &CacheStore{db: db, login: login, now: time.Now}, dbPath, nil
}

func safeDirName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// Close closes the database.
func (s *CacheStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the tables and indexes if missing.
func (s *CacheStore) Migrate() error {
	_, err := s.db.Exec(initialDDL())
	return err
}

func (s *CacheStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	var (
		data             []byte
		fetched, expires int64
		invalidated      int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, fetched_at, expires_at, invalidated FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixNano(),
	).Scan(&data, &fetched, &expires, &invalidated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cache.Entry{
		Key:         key,
		Data:        data,
		FetchedAt:   time.Unix(0, fetched),
		Invalidated: invalidated != 0,
		ExpiresAt:   time.Unix(0, expires),
	}, nil
}

func (s *CacheStore) Set(ctx context.Context, e cache.Entry) error {
	inv := 0
	if e.Invalidated {
		inv = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO cache_entries(key, data, fetched_at, expires_at, invalidated)
        VALUES(?, ?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            data = excluded.data,
            fetched_at = excluded.fetched_at,
            expires_at = excluded.expires_at,
            invalidated = excluded.invalidated`,
		e.Key, []byte(e.Data), e.FetchedAt.UnixNano(), e.ExpiresAt.UnixNano(), inv,
	)
	return err
}

func (s *CacheStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *CacheStore) Invalidate(ctx context.Context, prefix string) error {
	// substr avoids LIKE wildcards hiding in keys
	_, err := s.db.ExecContext(ctx,
		`UPDATE cache_entries SET invalidated = 1 WHERE substr(key, 1, ?) = ?`,
		len(prefix), prefix,
	)
	return err
}

func (s *CacheStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Clear drops every cached entry, used on sign-out.
func (s *CacheStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}
