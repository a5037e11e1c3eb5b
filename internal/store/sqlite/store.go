package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Recovery describes a database that was moved aside because it could not be
// opened or failed its integrity check.
type Recovery struct {
	Reason    error
	MovedTo   string
	Recovered bool
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	clean := filepath.Clean(dbPath)
	db, err := sql.Open("sqlite", clean)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenWithRecovery opens and migrates the database at dbPath. A database that
// cannot be opened, migrated or fails quick_check is renamed to
// <name>.corrupt-<unix> and replaced by a fresh one.
func OpenWithRecovery(ctx context.Context, dbPath string) (*Store, Recovery, error) {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(dbPath)), 0o755); err != nil {
		return nil, Recovery{}, err
	}
	store, reason := openChecked(ctx, dbPath)
	if reason == nil {
		return store, Recovery{}, nil
	}

	movedTo := fmt.Sprintf("%s.corrupt-%d", filepath.Clean(dbPath), time.Now().Unix())
	if err := quarantine(dbPath, movedTo); err != nil {
		return nil, Recovery{}, fmt.Errorf("quarantine settings database: %w", err)
	}
	store, err := openChecked(ctx, dbPath)
	if err != nil {
		return nil, Recovery{}, err
	}
	return store, Recovery{Reason: reason, MovedTo: movedTo, Recovered: true}, nil
}

func openChecked(ctx context.Context, dbPath string) (*Store, error) {
	store, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.QuickCheck(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func quarantine(dbPath, movedTo string) error {
	clean := filepath.Clean(dbPath)
	if err := os.Rename(clean, movedTo); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(clean + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) QuickCheck(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&result); err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(result), "ok") {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func (s *Store) Migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings(key, value) VALUES(?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`, key, value)
	return err
}

// ReplaceSettings deletes key and every key under key+"." and inserts values
// in one transaction. The subtree is matched as a byte range, '/' being the
// byte after '.'.
func (s *Store) ReplaceSettings(ctx context.Context, key string, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ? OR (key >= ? AND key < ?)`, key, key+".", key+"/"); err != nil {
		return err
	}
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO settings(key, value) VALUES(?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key string
		var value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE);`)
	return err
}
