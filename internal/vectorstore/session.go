package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"lexrag/internal/models"
	"lexrag/internal/storage"
	"lexrag/internal/util"
)

// SessionChunkRepo is the relational side of the session index: one row
// per appended vector, keyed by the vector's position id.
type SessionChunkRepo interface {
	InsertSessionChunks(ctx context.Context, rows []storage.SessionChunkRow) error
	GetChunksByPositions(ctx context.Context, positions []int64) (map[int64]models.Chunk, error)
	ClearSessionChunks(ctx context.Context) error
}

// SessionStore is the ephemeral nearest-neighbor store for one
// session's uploaded documents. Vectors live in an in-memory flat
// index; chunk text and metadata live in relational rows joined by
// position id. Add keeps the two sides consistent: the count read,
// vector append and row insert form one critical section, and a failed
// row insert rolls the vector append back.
type SessionStore struct {
	mu    sync.Mutex
	index *flatIndex
	repo  SessionChunkRepo
}

func NewSessionStore(dim int, repo SessionChunkRepo) (*SessionStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("session store dimension must be positive, got %d", dim)
	}
	return &SessionStore{index: newFlatIndex(dim), repo: repo}, nil
}

// Count reports the number of indexed vectors.
func (s *SessionStore) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Count()
}

// Add appends pre-embedded chunks. vectors[i] belongs to chunks[i].
// The base offset is read from the live index exactly once, immediately
// before the append; every row's position is base+i. All-or-nothing:
// on row-insert failure or context cancellation the index is restored
// to its prior count.
func (s *SessionStore) Add(ctx context.Context, chunks []models.ChunkPayload, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	base := s.index.Count()
	if err := s.index.Append(vectors); err != nil {
		return err
	}

	rows := make([]storage.SessionChunkRow, 0, len(chunks))
	for i, ch := range chunks {
		rows = append(rows, storage.SessionChunkRow{
			ChunkID:  uuid.NewString(),
			Text:     ch.Text,
			Metadata: ch.Metadata,
			Position: base + int64(i),
		})
	}
	if err := s.repo.InsertSessionChunks(ctx, rows); err != nil {
		// Compensating rollback: drop the vectors so position ids never
		// point at rows that were not written.
		s.index.Truncate(base)
		return fmt.Errorf("insert session chunk rows: %w", err)
	}
	return nil
}

// Search runs exact top-k inner-product search and joins hits back to
// their rows. A position with no row is dropped silently; an empty
// result is not an error.
func (s *SessionStore) Search(ctx context.Context, queryVec []float32, k int) ([]models.RetrievedChunk, error) {
	s.mu.Lock()
	hits := s.index.Search(queryVec, k)
	s.mu.Unlock()
	if len(hits) == 0 {
		return nil, nil
	}

	positions := make([]int64, 0, len(hits))
	for _, h := range hits {
		positions = append(positions, h.Position)
	}
	rows, err := s.repo.GetChunksByPositions(ctx, positions)
	if err != nil {
		return nil, fmt.Errorf("resolve session hits: %w", err)
	}

	out := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		row, ok := rows[h.Position]
		if !ok {
			continue
		}
		out = append(out, models.RetrievedChunk{
			Text:       row.Text,
			DocumentID: row.DocumentID,
			Metadata:   row.Metadata,
			Score:      h.Score,
			Source:     models.SourceSession,
		})
	}
	return out, nil
}

// Reset drops the index and every session row. Used at startup when no
// usable snapshot exists, so leftover rows from a previous run cannot
// collide with freshly assigned positions.
func (s *SessionStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.ClearSessionChunks(ctx); err != nil {
		return err
	}
	s.index.Truncate(0)
	return nil
}

// Save snapshots the index to path.
func (s *SessionStore) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Save(path)
}

// Load replaces the in-memory index with the snapshot at path. When the
// snapshot is missing or corrupt the store keeps its current (usually
// empty) state and reports ErrIndexUnavailable.
func (s *SessionStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Load(path)
}

// IsIndexUnavailable tells callers whether a Load failure just means
// "no snapshot yet".
func IsIndexUnavailable(err error) bool {
	return errors.Is(err, util.ErrIndexUnavailable)
}
