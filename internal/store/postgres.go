package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps slots in a shared database, for deployments where the
// simulated state should outlive a single machine.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS slots (
			kind       TEXT NOT NULL,
			identity   TEXT NOT NULL,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (kind, identity)
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context, kind, identity string) ([]byte, bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `
		SELECT value FROM slots WHERE kind = $1 AND identity = $2
	`, kind, identity).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (p *Postgres) Save(ctx context.Context, kind, identity string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO slots (kind, identity, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (kind, identity) DO UPDATE SET
			value = excluded.value,
			updated_at = now()
	`, kind, identity, value)
	return err
}

func (p *Postgres) Delete(ctx context.Context, kind, identity string) error {
	_, err := p.pool.Exec(ctx, `
		DELETE FROM slots WHERE kind = $1 AND identity = $2
	`, kind, identity)
	return err
}

func (p *Postgres) Close() {
	p.pool.Close()
}
