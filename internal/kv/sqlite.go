// ABOUTME: SQLite implementation of Backend using modernc.org/sqlite (or mattn/go-sqlite3)
// ABOUTME: Stores every document as one row of the kv table with automatic schema creation

package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by OpenSQLite.
const (
	DriverModernc = "sqlite"  // pure Go, default
	DriverMattn   = "sqlite3" // cgo
)

// SQLite implements Backend on a single SQLite table.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (and creates if missing) the SQLite database at path.
// Parent directories are created if needed. An empty driver selects DriverModernc.
func OpenSQLite(path, driver string) (*SQLite, error) {
	logger := slog.Default().With("component", "kv", "backend", "sqlite")

	if driver == "" {
		driver = DriverModernc
	}
	if driver != DriverModernc && driver != DriverMattn {
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating database directory: %w", ErrUnavailable, err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrUnavailable, err)
	}
	// One writer; also keeps :memory: databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("enabling WAL mode: %w", err))
	}

	s := &SQLite{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("creating schema: %w", err))
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("running migrations: %w", err))
	}

	logger.Info("SQLite backend initialized", "path", path, "driver", driver)
	return s, nil
}

func (s *SQLite) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies column additions for databases created by older builds.
// These are idempotent - safe to run multiple times.
func (s *SQLite) runMigrations() error {
	migrations := []struct {
		check  string
		apply  string
		column string
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('kv') WHERE name = 'updated_at'`,
			apply:  `ALTER TABLE kv ADD COLUMN updated_at TEXT NOT NULL DEFAULT ''`,
			column: "updated_at",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to kv: %w", m.column, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", "kv")
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	s.logger.Debug("closing SQLite backend")
	return s.db.Close()
}

// Ping checks that the database still accepts queries.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Get returns the value stored under key.
// Returns ErrNotFound if the key does not exist.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("querying key %q: %w", key, err))
	}
	return value, nil
}

// Set inserts or replaces the value stored under key.
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany writes all entries in a single transaction.
func (s *SQLite) SetMany(ctx context.Context, entries map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, key := range sortedKeys(entries) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, entries[key], now)
		if err != nil {
			return classify(fmt.Errorf("writing key %q: %w", key, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	committed = true

	s.logger.Debug("wrote keys", "count", len(entries))
	return nil
}

// Delete removes key if present.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return classify(fmt.Errorf("deleting key %q: %w", key, err))
	}
	return nil
}

// Keys lists all stored keys in ascending order.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key ASC`)
	if err != nil {
		return nil, classify(fmt.Errorf("listing keys: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// classify tags SQLite driver errors with ErrQuotaExceeded or ErrUnavailable
// so callers can tell a full disk from a missing database.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrUnavailable) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database or disk is full"),
		strings.Contains(msg, "sqlite_full"):
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	case strings.Contains(msg, "readonly"),
		strings.Contains(msg, "read-only"),
		strings.Contains(msg, "unable to open"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "database is locked"):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
