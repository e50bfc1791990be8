package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"lexrag/internal/models"
)

// SessionChunkRow is one relational row backing a vector in the session
// index. Position must equal the vector's offset in the index.
type SessionChunkRow struct {
	ChunkID  string
	Text     string
	Metadata map[string]any
	Position int64
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertSessionChunks writes all rows for one session-index append in a
// single transaction, so a partial failure leaves no stray rows for the
// caller's compensating index rollback to miss.
func (r *ChunkRepo) InsertSessionChunks(ctx context.Context, rows []SessionChunkRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert session chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, row := range rows {
		meta, err := json.Marshal(row.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO chunks (id, document_id, text, metadata, position)
VALUES ($1, NULL, $2, $3, $4)`,
			row.ChunkID, row.Text, meta, row.Position,
		)
		if err != nil {
			return fmt.Errorf("insert session chunk at position %d: %w", row.Position, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit session chunks tx: %w", err)
	}
	return nil
}

// ClearSessionChunks deletes every session-backed row. Called when the
// index snapshot is gone; rows without vectors are unreachable and
// their positions would collide with the next append.
func (r *ChunkRepo) ClearSessionChunks(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM chunks WHERE position IS NOT NULL`); err != nil {
		return fmt.Errorf("clear session chunks: %w", err)
	}
	return nil
}

// GetChunksByPositions resolves session-index hits back to their rows.
// Positions with no matching row are simply absent from the result.
func (r *ChunkRepo) GetChunksByPositions(ctx context.Context, positions []int64) (map[int64]models.Chunk, error) {
	if len(positions) == 0 {
		return map[int64]models.Chunk{}, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, COALESCE(document_id::text,''), text, COALESCE(metadata,'{}'::jsonb), position, created_at
FROM chunks
WHERE position = ANY($1)`, positions)
	if err != nil {
		return nil, fmt.Errorf("get chunks by positions: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]models.Chunk, len(positions))
	for rows.Next() {
		var (
			c    models.Chunk
			meta []byte
			pos  int64
		)
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Text, &meta, &pos, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session chunk: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		c.Position = &pos
		out[pos] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session chunks: %w", err)
	}
	return out, nil
}
