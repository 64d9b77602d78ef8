package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// LocalStore is the always-available durable store: one SQLite file, one
// row per save id, payload is a compressed snapshot blob.
type LocalStore struct {
	db *sql.DB
}

func OpenLocal(path string) (*LocalStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty save db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS saves (
			save_id  TEXT PRIMARY KEY,
			version  INTEGER NOT NULL,
			payload  BLOB NOT NULL,
			saved_at TEXT NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &LocalStore{db: db}, nil
}

func (s *LocalStore) Put(ctx context.Context, saveID string, payload []byte, savedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saves (save_id, version, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (save_id) DO UPDATE SET
			version  = excluded.version,
			payload  = excluded.payload,
			saved_at = excluded.saved_at
	`, saveID, SnapshotVersion, payload, savedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *LocalStore) Get(ctx context.Context, saveID string) ([]byte, time.Time, bool, error) {
	var payload []byte
	var savedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, saved_at FROM saves WHERE save_id = ?
	`, saveID).Scan(&payload, &savedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		at = time.Time{}
	}
	return payload, at, true, nil
}

func (s *LocalStore) Delete(ctx context.Context, saveID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE save_id = ?`, saveID)
	return err
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}
