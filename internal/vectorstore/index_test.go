package vectorstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lexrag/internal/util"
)

func TestFlatIndexSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.index")

	ix := newFlatIndex(3)
	require.NoError(t, ix.Append([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}))
	require.NoError(t, ix.Save(path))

	restored := newFlatIndex(3)
	require.NoError(t, restored.Load(path))
	require.EqualValues(t, 3, restored.Count())

	hits := restored.Search([]float32{0, 1, 0}, 1)
	require.Len(t, hits, 1)
	require.EqualValues(t, 1, hits[0].Position)
	require.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestFlatIndexLoadMissingSnapshot(t *testing.T) {
	ix := newFlatIndex(3)
	err := ix.Load(filepath.Join(t.TempDir(), "absent.index"))
	require.ErrorIs(t, err, util.ErrIndexUnavailable)
	require.EqualValues(t, 0, ix.Count())
}

func TestFlatIndexLoadCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.index")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	ix := newFlatIndex(3)
	err := ix.Load(path)
	require.ErrorIs(t, err, util.ErrIndexUnavailable)
	require.EqualValues(t, 0, ix.Count())
}

func TestFlatIndexLoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.index")
	src := newFlatIndex(4)
	require.NoError(t, src.Append([][]float32{{1, 0, 0, 0}}))
	require.NoError(t, src.Save(path))

	ix := newFlatIndex(8)
	err := ix.Load(path)
	require.ErrorIs(t, err, util.ErrIndexUnavailable)
	require.EqualValues(t, 0, ix.Count())
}

func TestFlatIndexLoadReplacesExistingVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.index")
	src := newFlatIndex(2)
	require.NoError(t, src.Append([][]float32{{1, 0}}))
	require.NoError(t, src.Save(path))

	ix := newFlatIndex(2)
	require.NoError(t, ix.Append([][]float32{{0, 1}, {1, 0}, {0, 1}}))
	require.NoError(t, ix.Load(path))
	require.EqualValues(t, 1, ix.Count())
}

func TestFlatIndexTruncate(t *testing.T) {
	ix := newFlatIndex(2)
	require.NoError(t, ix.Append([][]float32{{1, 0}, {0, 1}, {1, 0}}))

	ix.Truncate(1)
	require.EqualValues(t, 1, ix.Count())
	ix.Truncate(5)
	require.EqualValues(t, 1, ix.Count())
	ix.Truncate(-1)
	require.EqualValues(t, 0, ix.Count())
}

func TestFlatIndexSearchTiesKeepInsertionOrder(t *testing.T) {
	ix := newFlatIndex(2)
	require.NoError(t, ix.Append([][]float32{{1, 0}, {1, 0}, {0, 1}}))

	hits := ix.Search([]float32{1, 0}, 3)
	require.Len(t, hits, 3)
	require.EqualValues(t, 0, hits[0].Position)
	require.EqualValues(t, 1, hits[1].Position)
	require.EqualValues(t, 2, hits[2].Position)
}
