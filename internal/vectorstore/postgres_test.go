package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lexrag/internal/models"
	"lexrag/internal/storage"
	"lexrag/internal/util"
)

func TestPostgresStoreRejectsNonPositiveDimension(t *testing.T) {
	_, err := NewPostgresStore(&storage.DB{}, 0)
	require.Error(t, err)
}

func TestPostgresStoreAddRejectsDimensionMismatchBeforeAnyWrite(t *testing.T) {
	// The guard must fire before the pool is touched; a nil pool would
	// panic if any write were attempted.
	store, err := NewPostgresStore(&storage.DB{}, 8)
	require.NoError(t, err)

	err = store.AddDocumentChunks(context.Background(),
		models.Document{Filename: "x.pdf"},
		[]models.ChunkPayload{{Text: "chunk"}},
		[][]float32{make([]float32, 4)})
	require.ErrorIs(t, err, util.ErrDimensionMismatch)
}

func TestPostgresStoreAddRejectsLengthMismatch(t *testing.T) {
	store, err := NewPostgresStore(&storage.DB{}, 8)
	require.NoError(t, err)

	err = store.AddDocumentChunks(context.Background(),
		models.Document{Filename: "x.pdf"},
		[]models.ChunkPayload{{Text: "a"}, {Text: "b"}},
		[][]float32{make([]float32, 8)})
	require.Error(t, err)
}

func TestPostgresStoreSearchRejectsDimensionMismatch(t *testing.T) {
	store, err := NewPostgresStore(&storage.DB{}, 8)
	require.NoError(t, err)

	_, err = store.SimilaritySearch(context.Background(), make([]float32, 3), 5)
	require.ErrorIs(t, err, util.ErrDimensionMismatch)
}
