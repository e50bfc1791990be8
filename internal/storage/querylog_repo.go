package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// QueryLogRepo appends audit rows for answered queries. Write-only from
// the assistant's point of view.
type QueryLogRepo struct {
	db *DB
}

func NewQueryLogRepo(db *DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

func (r *QueryLogRepo) Append(ctx context.Context, queryText, language string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO query_logs (id, query_text, language)
VALUES ($1, $2, NULLIF($3,''))`,
		uuid.NewString(), queryText, language)
	if err != nil {
		return fmt.Errorf("append query log: %w", err)
	}
	return nil
}
