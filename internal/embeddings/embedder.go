package embeddings

import (
	"context"
	"fmt"
	"math"

	"lexrag/internal/providers"
	"lexrag/internal/util"
)

// Embedder is the embedding port shared by both vector stores. It
// guarantees unit-norm vectors of a fixed dimension; the stores rely on
// that and never re-normalize. Stateless and safe for concurrent use as
// long as the underlying provider is.
type Embedder struct {
	provider providers.EmbeddingProvider
	dim      int
}

func New(provider providers.EmbeddingProvider, dim int) (*Embedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &Embedder{provider: provider, dim: dim}, nil
}

func (e *Embedder) Dimension() int { return e.dim }

// EmbedPassages embeds document chunks in one batch call, preserving
// input order.
func (e *Embedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, providers.ModePassage)
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, providers.ModeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, mode providers.EmbedMode) ([][]float32, error) {
	vectors, _, err := e.provider.Embed(ctx, providers.EmbedRequest{
		Inputs:    texts,
		Mode:      mode,
		Dimension: e.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d: %w", i, len(v), e.dim, util.ErrDimensionMismatch)
		}
		if err := normalize(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return vectors, nil
}

// normalize scales v to unit length in place. Providers that already
// return unit vectors are unaffected; for the rest this is what makes
// inner-product search equivalent to cosine similarity.
func normalize(v []float32) error {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return fmt.Errorf("embedding vector has zero norm")
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return nil
}
