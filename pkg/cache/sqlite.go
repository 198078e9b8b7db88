package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/db"
	"github.com/rubiojr/ontosearch/pkg/log"
)

// SQLite persists entries in a SQLite database. Values are stored
// zstd-compressed and expire by their expires_at column.
type SQLite struct {
	db   *sql.DB
	path string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	log  *log.Logger
	now  func() time.Time
}

// OpenSQLite opens (or creates) the cache database at path and applies the
// schema migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &SQLite{
		db:   conn,
		path: path,
		enc:  enc,
		dec:  dec,
		log:  log.ForService("cache"),
		now:  time.Now,
	}, nil
}

// Path returns the database file backing the store.
func (s *SQLite) Path() string {
	return s.path
}

// Close releases the zstd coders and closes the database.
func (s *SQLite) Close() error {
	s.dec.Close()
	encErr := s.enc.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	if encErr != nil {
		return fmt.Errorf("closing zstd encoder: %w", encErr)
	}
	return nil
}

// Get returns the live value stored under key. A value that cannot be
// decompressed is logged, deleted and reported as a miss.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := s.now().UnixMilli()

	var compressed []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM cache_entries WHERE key = ? AND expires_at > ?", key, now,
	).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	value, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		s.log.Warnf("dropping entry %s: %v", key, fmt.Errorf("%w: %v", core.ErrCacheDeserialization, err))
		if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
			s.log.Warnf("failed to delete entry %s: %v", key, err)
		}
		return nil, false, nil
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE cache_entries SET hits = hits + 1, last_hit_at = ? WHERE key = ?", now, key,
	); err != nil {
		s.log.Debugf("failed to record hit for %s: %v", key, err)
	}

	return value, true, nil
}

// Set stores value under key for ttl, replacing any previous entry.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := s.now()
	compressed := s.enc.EncodeAll(value, nil)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache_entries (key, value, size, created_at, expires_at, hits, last_hit_at)
		VALUES (?, ?, ?, ?, ?, 0, NULL)
	`, key, compressed, len(value), now.UnixMilli(), now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged entries: %w", err)
	}
	return int(n), nil
}

// Clear deletes every entry.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("clearing cache entries: %w", err)
	}
	return nil
}

// Stats reports entry counts and the uncompressed size of stored values.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(size), 0),
		       COALESCE(SUM(hits), 0)
		FROM cache_entries
	`, s.now().UnixMilli()).Scan(&st.Entries, &st.Expired, &st.Bytes, &st.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	return st, nil
}
