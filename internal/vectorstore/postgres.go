package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lexrag/internal/models"
	"lexrag/internal/storage"
	"lexrag/internal/util"
)

// PostgresStore is the durable, cross-session knowledge base: chunk
// rows with a pgvector embedding column, ordered at query time by
// cosine distance. The column dimension is fixed at schema creation;
// AddDocumentChunks rejects any other dimension before touching the
// database.
type PostgresStore struct {
	db  *storage.DB
	dim int
}

func NewPostgresStore(db *storage.DB, dim int) (*PostgresStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("postgres store dimension must be positive, got %d", dim)
	}
	return &PostgresStore{db: db, dim: dim}, nil
}

// AddDocumentChunks inserts one document row plus one chunk row per
// (chunk, vector) pair inside a single transaction. Any failure rolls
// the whole document back; there is no partial document state. Chunk
// metadata is stored as given; callers decide what it carries,
// including the retrieval source marker.
func (p *PostgresStore) AddDocumentChunks(ctx context.Context, doc models.Document, chunks []models.ChunkPayload, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != p.dim {
			return fmt.Errorf("vector %d has dimension %d, want %d: %w", i, len(v), p.dim, util.ErrDimensionMismatch)
		}
	}

	docID := doc.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}

	tx, err := p.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx add document: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
INSERT INTO documents (id, filename, source_type, language, jurisdiction)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''))`,
		docID, doc.Filename, doc.SourceType, doc.Language, doc.Jurisdiction)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.Filename, err)
	}

	// Fallback for chunks that arrive without metadata of their own.
	docMeta := map[string]any{
		"filename":     doc.Filename,
		"source_type":  doc.SourceType,
		"language":     doc.Language,
		"jurisdiction": doc.Jurisdiction,
	}

	for i, ch := range chunks {
		m := ch.Metadata
		if len(m) == 0 {
			m = docMeta
		}
		meta, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal chunk %d metadata: %w", i, err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO chunks (id, document_id, text, metadata, embedding)
VALUES ($1, $2, $3, $4, $5::vector)`,
			uuid.NewString(), docID, ch.Text, meta, VectorLiteral(vectors[i]))
		if err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", i, doc.Filename, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit add document tx: %w", err)
	}
	return nil
}

// SimilaritySearch returns the k nearest chunks to queryVec under
// cosine distance. For unit vectors this is the same ordering as inner
// product, matching the session index. Score is 1 - distance.
func (p *PostgresStore) SimilaritySearch(ctx context.Context, queryVec []float32, k int) ([]models.RetrievedChunk, error) {
	if len(queryVec) != p.dim {
		return nil, fmt.Errorf("query vector has dimension %d, want %d: %w", len(queryVec), p.dim, util.ErrDimensionMismatch)
	}
	if k <= 0 {
		k = 5
	}
	rows, err := p.db.Pool.Query(ctx, `
SELECT c.text,
       COALESCE(c.document_id::text, ''),
       COALESCE(c.metadata, '{}'::jsonb),
       1 - (c.embedding <=> $1::vector) AS score
FROM chunks c
WHERE c.embedding IS NOT NULL
ORDER BY c.embedding <=> $1::vector
LIMIT $2`, VectorLiteral(queryVec), k)
	if err != nil {
		return nil, fmt.Errorf("query similarity search: %w", err)
	}
	defer rows.Close()

	out := make([]models.RetrievedChunk, 0, k)
	for rows.Next() {
		var (
			r    models.RetrievedChunk
			meta []byte
		)
		if err := rows.Scan(&r.Text, &r.DocumentID, &meta, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal search metadata: %w", err)
			}
		}
		r.Source = models.SourceGeneral
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

// VectorLiteral renders a vector in pgvector's text input format.
func VectorLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%g", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
