package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps slots in a single embedded database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer; the simulator is synchronous-per-call anyway.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS slots (
			kind     TEXT NOT NULL,
			identity TEXT NOT NULL,
			value    BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (kind, identity)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, kind, identity string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM slots WHERE kind = ? AND identity = ?
	`, kind, identity).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *SQLite) Save(ctx context.Context, kind, identity string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (kind, identity, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (kind, identity) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, kind, identity, value)
	return err
}

func (s *SQLite) Delete(ctx context.Context, kind, identity string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM slots WHERE kind = ? AND identity = ?
	`, kind, identity)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
