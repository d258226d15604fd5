package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at TEXT NOT NULL
);
`

// SQLiteCache is a file-backed Cache. One writer connection, WAL journal;
// expiry is enforced on read so no background sweeper is needed.
type SQLiteCache struct {
	db  *sqlx.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteCache{db: db, now: time.Now}, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var value []byte
	var expiresAt string
	row := c.db.QueryRowContext(ctx, "SELECT value, expires_at FROM cache_entries WHERE key = ?", key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		return nil, false, nil
	}
	exp, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil || c.now().After(exp) {
		_, _ = c.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key)
		return nil, false, nil
	}
	return value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl).UTC().Format(time.RFC3339Nano)
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)",
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

var _ Cache = (*SQLiteCache)(nil)
