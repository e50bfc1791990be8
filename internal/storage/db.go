package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// EnsureSchema creates the pgvector extension and the three tables the
// assistant uses. The embedding column dimension is fixed here; inserts
// with any other dimension fail.
func (d *DB) EnsureSchema(ctx context.Context, embedDim int) error {
	if embedDim <= 0 {
		return fmt.Errorf("embed dimension must be positive, got %d", embedDim)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			source_type TEXT,
			language TEXT,
			jurisdiction TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID REFERENCES documents(id),
			text TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			position BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, embedDim),
		`CREATE UNIQUE INDEX IF NOT EXISTS chunks_position_idx ON chunks (position) WHERE position IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS query_logs (
			id UUID PRIMARY KEY,
			query_text TEXT NOT NULL,
			language TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
