// Package postgres keeps credentials in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/subscout-dev/subscout/internal/credentials"
)

//go:embed 001_create_credentials.sql
var migrationSQL string

// Config holds the connection settings.
type Config struct {
	DSN         string
	MaxPoolSize int
}

// Store is a credentials.Repository backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
	now  func() time.Time
}

var _ credentials.Repository = (*Store)(nil)

// Open connects, pings and migrates the database.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 5
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Info().
		Str("database", poolConfig.ConnConfig.Database).
		Str("host", poolConfig.ConnConfig.Host).
		Msg("connected to PostgreSQL")

	return &Store{pool: pool, log: log, now: time.Now}, nil
}

// Get returns the credential stored for id.
func (s *Store) Get(ctx context.Context, id string) (credentials.Credential, error) {
	if id == "" {
		return credentials.Credential{}, credentials.ErrEmptyID
	}

	var cred credentials.Credential
	err := s.pool.QueryRow(ctx,
		`SELECT access_token, item_id, updated_at FROM credentials WHERE id = $1`, id,
	).Scan(&cred.AccessToken, &cred.ItemID, &cred.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return credentials.Credential{}, fmt.Errorf("%w: %s", credentials.ErrNotFound, id)
	}
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("query credential: %w", err)
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

	_, err := s.pool.Exec(ctx, `
		INSERT INTO credentials (id, access_token, item_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			item_id = EXCLUDED.item_id,
			updated_at = EXCLUDED.updated_at`,
		id, cred.AccessToken, cred.ItemID, cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
