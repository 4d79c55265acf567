// Package sqlite keeps credentials in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/subscout-dev/subscout/internal/credentials"
)

const timeFormat = time.RFC3339Nano

// Store is a credentials.Repository backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ credentials.Repository = (*Store)(nil)

// Open opens (creating if needed) the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Get returns the credential stored for id.
func (s *Store) Get(ctx context.Context, id string) (credentials.Credential, error) {
	if id == "" {
		return credentials.Credential{}, credentials.ErrEmptyID
	}

	var cred credentials.Credential
	var updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, item_id, updated_at FROM credentials WHERE id = ?`, id,
	).Scan(&cred.AccessToken, &cred.ItemID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return credentials.Credential{}, fmt.Errorf("%w: %s", credentials.ErrNotFound, id)
	}
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("query credential: %w", err)
	}

	cred.UpdatedAt, err = time.Parse(timeFormat, updated)
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("parsing updated_at %q: %w", updated, err)
	}
	return cred, nil
}

// Put upserts cred under id.
func (s *Store) Put(ctx context.Context, id string, cred credentials.Credential) error {
	if id == "" {
		return credentials.ErrEmptyID
	}
	if cred.UpdatedAt.IsZero() {
		cred.UpdatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, access_token, item_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			item_id = excluded.item_id,
			updated_at = excluded.updated_at`,
		id, cred.AccessToken, cred.ItemID, cred.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
