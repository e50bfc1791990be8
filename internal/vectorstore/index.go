package vectorstore

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lexrag/internal/util"
)

// flatIndex is an append-only, exact inner-product index. A vector's
// identity is its offset in the list; that offset is what the session
// store records as the chunk's position id.
type flatIndex struct {
	dim     int
	vectors [][]float32
}

func newFlatIndex(dim int) *flatIndex {
	return &flatIndex{dim: dim}
}

func (ix *flatIndex) Count() int64 {
	return int64(len(ix.vectors))
}

func (ix *flatIndex) Append(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("vector %d has dimension %d, want %d: %w", i, len(v), ix.dim, util.ErrDimensionMismatch)
		}
	}
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Truncate drops every vector at offset n and beyond. Used as the
// compensating rollback when the relational insert for an append fails.
func (ix *flatIndex) Truncate(n int64) {
	if n < 0 {
		n = 0
	}
	if n < int64(len(ix.vectors)) {
		ix.vectors = ix.vectors[:n]
	}
}

type indexHit struct {
	Position int64
	Score    float64
}

// Search returns the top k positions by inner product, descending.
// Vectors are unit-norm, so inner product equals cosine similarity.
// Ties keep insertion order.
func (ix *flatIndex) Search(query []float32, k int) []indexHit {
	if k <= 0 || len(ix.vectors) == 0 {
		return nil
	}
	hits := make([]indexHit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = indexHit{Position: int64(i), Score: dot(v, query)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// indexSnapshot is the gob-serialized on-disk form of a flatIndex.
type indexSnapshot struct {
	Dim     int
	Vectors [][]float32
}

// Save writes the full index to path atomically.
func (ix *flatIndex) Save(path string) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*.index")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	if err := gob.NewEncoder(tmp).Encode(indexSnapshot{Dim: ix.dim, Vectors: ix.vectors}); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename index snapshot: %w", err)
	}
	return nil
}

// Load replaces the in-memory state with the snapshot at path. No merge
// with current contents. A missing or unreadable snapshot, or one whose
// dimension disagrees with the index, yields ErrIndexUnavailable so the
// caller can start from an empty index instead of crashing.
func (ix *flatIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index snapshot %s: %w", path, util.ErrIndexUnavailable)
	}
	defer f.Close()

	var snap indexSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode index snapshot %s: %w", path, util.ErrIndexUnavailable)
	}
	if snap.Dim != ix.dim {
		return fmt.Errorf("snapshot dimension %d, want %d: %w", snap.Dim, ix.dim, util.ErrIndexUnavailable)
	}
	ix.vectors = snap.Vectors
	return nil
}
