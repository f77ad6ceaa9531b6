package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/pintask/internal/client/migrations"
	"github.com/dmitrijs2005/pintask/internal/common"
	"github.com/dmitrijs2005/pintask/internal/dbx"
	"github.com/pressly/goose/v3"
)

// SQLiteStore implements Store over a single kv table. Initialization is a
// one-time event per process; operations invoked before Open completes
// follow the "resolve empty, never fail" contract.
type SQLiteStore struct {
	mu    sync.RWMutex
	db    *sql.DB
	ready chan struct{}
}

func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{ready: make(chan struct{})}
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open connects to the SQLite database at dsn, applies migrations, and
// closes the Ready channel. Calling Open twice is an error.
func (s *SQLiteStore) Open(ctx context.Context, dsn string) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open local db: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migration error: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		db.Close()
		return errors.New("store already initialized")
	}
	s.db = db
	close(s.ready)
	return nil
}

// Ready is closed once Open has completed successfully.
func (s *SQLiteStore) Ready() <-chan struct{} {
	return s.ready
}

func (s *SQLiteStore) handle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Get returns the value stored under key, or common.ErrNotFound if the key
// is absent or the store has not been initialized yet.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	db := s.handle()
	if db == nil {
		return nil, common.ErrNotFound
	}
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

// Set upserts key/value. A call before initialization is a no-op.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	db := s.handle()
	if db == nil {
		return nil
	}
	query := `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	db := s.handle()
	if db == nil {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// Clear wipes the entire store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	db := s.handle()
	if db == nil {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	db := s.handle()
	if db == nil {
		return nil
	}
	return db.Close()
}

// NextID allocates a device-scoped task id: monotonically increasing,
// seeded from wall-clock milliseconds, persisted so neither restarts nor
// clock regressions reissue an id. Before initialization it falls back to
// the raw timestamp.
func (s *SQLiteStore) NextID(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()

	db := s.handle()
	if db == nil {
		return now, nil
	}

	var id int64
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var last int64
		err := tx.QueryRowContext(ctx, `SELECT CAST(value AS INTEGER) FROM kv WHERE key = ?`, KeyLastID).Scan(&last)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		id = now
		if id <= last {
			id = last + 1
		}

		query := `INSERT INTO kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		_, err = tx.ExecContext(ctx, query, KeyLastID, fmt.Sprintf("%d", id))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	return id, nil
}
