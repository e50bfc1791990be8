package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"lexrag/internal/models"
)

type stubSession struct {
	hits    []models.RetrievedChunk
	err     error
	added   [][]models.ChunkPayload
	saved   int
	loadErr error
}

func (s *stubSession) Add(_ context.Context, chunks []models.ChunkPayload, _ [][]float32) error {
	s.added = append(s.added, chunks)
	return s.err
}

func (s *stubSession) Search(context.Context, []float32, int) ([]models.RetrievedChunk, error) {
	return s.hits, s.err
}

func (s *stubSession) Count() int64 { return int64(len(s.added)) }

func (s *stubSession) Save(string) error {
	s.saved++
	return nil
}

func (s *stubSession) Load(string) error { return s.loadErr }

func (s *stubSession) Reset(context.Context) error {
	s.added = nil
	return nil
}

type stubGeneral struct {
	hits   []models.RetrievedChunk
	err    error
	docs   []models.Document
	chunks []models.ChunkPayload
}

func (g *stubGeneral) AddDocumentChunks(_ context.Context, doc models.Document, chunks []models.ChunkPayload, _ [][]float32) error {
	g.docs = append(g.docs, doc)
	g.chunks = append(g.chunks, chunks...)
	return g.err
}

func (g *stubGeneral) SimilaritySearch(context.Context, []float32, int) ([]models.RetrievedChunk, error) {
	return g.hits, g.err
}

type stubEmbedder struct {
	dim        int
	queryCalls int
	err        error
}

func (e *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	e.queryCalls++
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, e.dim), nil
}

func (e *stubEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}

func sessionHit(text string, score float64) models.RetrievedChunk {
	return models.RetrievedChunk{Text: text, Score: score, Source: models.SourceSession}
}

func generalHit(text string, score float64) models.RetrievedChunk {
	return models.RetrievedChunk{Text: text, Score: score, Source: models.SourceGeneral}
}

func newTestManager(t *testing.T, session *stubSession, general *stubGeneral, emb *stubEmbedder) *Manager {
	t.Helper()
	m, err := NewManager(ManagerOptions{
		Session:     session,
		General:     general,
		Embedder:    emb,
		SessionTopK: 5,
		GeneralTopK: 5,
	})
	require.NoError(t, err)
	return m
}

func TestSearchSessionHitsOutrankHigherScoredGeneralHits(t *testing.T) {
	session := &stubSession{hits: []models.RetrievedChunk{sessionHit("uploaded contract clause", 0.41)}}
	general := &stubGeneral{hits: []models.RetrievedChunk{
		generalHit("statute excerpt one", 0.97),
		generalHit("statute excerpt two", 0.95),
		generalHit("statute excerpt three", 0.93),
	}}
	m := newTestManager(t, session, general, &stubEmbedder{dim: 8})

	got, err := m.Search(context.Background(), "termination rights", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, models.SourceSession, got[0].Source)
	require.Equal(t, "uploaded contract clause", got[0].Text)
	require.Equal(t, "statute excerpt one", got[1].Text)
	require.Equal(t, "statute excerpt two", got[2].Text)
}

func TestSearchEmbedsQueryOnce(t *testing.T) {
	emb := &stubEmbedder{dim: 8}
	m := newTestManager(t, &stubSession{}, &stubGeneral{}, emb)

	_, err := m.Search(context.Background(), "any query", 5)
	require.NoError(t, err)
	require.Equal(t, 1, emb.queryCalls)
}

func TestSearchDegradesWhenOneStoreFails(t *testing.T) {
	general := &stubGeneral{hits: []models.RetrievedChunk{generalHit("still here", 0.5)}}
	m := newTestManager(t, &stubSession{err: errors.New("index gone")}, general, &stubEmbedder{dim: 8})

	got, err := m.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "still here", got[0].Text)
}

func TestSearchFailsWhenBothStoresFail(t *testing.T) {
	m := newTestManager(t,
		&stubSession{err: errors.New("session down")},
		&stubGeneral{err: errors.New("db down")},
		&stubEmbedder{dim: 8})

	_, err := m.Search(context.Background(), "q", 5)
	require.Error(t, err)
}

func TestSearchFailsWhenQueryEmbeddingFails(t *testing.T) {
	m := newTestManager(t, &stubSession{}, &stubGeneral{}, &stubEmbedder{dim: 8, err: errors.New("provider down")})

	_, err := m.Search(context.Background(), "q", 5)
	require.Error(t, err)
}

func TestAddSessionDocumentSnapshotsIndex(t *testing.T) {
	session := &stubSession{}
	m, err := NewManager(ManagerOptions{
		Session:      session,
		General:      &stubGeneral{},
		Embedder:     &stubEmbedder{dim: 8},
		SnapshotPath: "ignored-by-stub.index",
	})
	require.NoError(t, err)

	chunks := []models.ChunkPayload{{Text: "clause one"}, {Text: "clause two"}}
	require.NoError(t, m.AddSessionDocument(context.Background(), chunks))
	require.Len(t, session.added, 1)
	require.Equal(t, 1, session.saved)
}

func TestAddGeneralDocumentRoutesToPersistentStore(t *testing.T) {
	general := &stubGeneral{}
	m := newTestManager(t, &stubSession{}, general, &stubEmbedder{dim: 8})

	doc := models.Document{Filename: "ipc.pdf", SourceType: "statute"}
	require.NoError(t, m.AddGeneralDocument(context.Background(), doc, []models.ChunkPayload{{Text: "s. 420"}}))
	require.Len(t, general.docs, 1)
	require.Equal(t, "ipc.pdf", general.docs[0].Filename)
}

func TestAddSessionDocumentTagsChunksWithSessionSource(t *testing.T) {
	session := &stubSession{}
	m := newTestManager(t, session, &stubGeneral{}, &stubEmbedder{dim: 8})

	shared := map[string]any{"filename": "brief.pdf"}
	chunks := []models.ChunkPayload{
		{Text: "clause one", Metadata: shared},
		{Text: "clause two", Metadata: shared},
	}
	require.NoError(t, m.AddSessionDocument(context.Background(), chunks))

	require.Len(t, session.added, 1)
	for _, ch := range session.added[0] {
		require.Equal(t, models.SourceSession, ch.Metadata["source"])
		require.Equal(t, "brief.pdf", ch.Metadata["filename"])
	}
	// The caller's shared map must stay untouched.
	require.NotContains(t, shared, "source")
}

func TestAddGeneralDocumentTagsChunksWithGeneralSource(t *testing.T) {
	general := &stubGeneral{}
	m := newTestManager(t, &stubSession{}, general, &stubEmbedder{dim: 8})

	doc := models.Document{Filename: "ipc.pdf"}
	orig := map[string]any{"jurisdiction": "India"}
	require.NoError(t, m.AddGeneralDocument(context.Background(), doc,
		[]models.ChunkPayload{{Text: "s. 420", Metadata: orig}}))

	require.Len(t, general.chunks, 1)
	require.Equal(t, models.SourceGeneral, general.chunks[0].Metadata["source"])
	require.Equal(t, "India", general.chunks[0].Metadata["jurisdiction"])
	require.NotContains(t, orig, "source")
}

func TestPriorityMergeTruncatesToTopK(t *testing.T) {
	session := []models.RetrievedChunk{sessionHit("s1", 0.1), sessionHit("s2", 0.2)}
	general := []models.RetrievedChunk{generalHit("g1", 0.9), generalHit("g2", 0.8)}

	got := PriorityMerge{}.Merge(session, general, 3)
	require.Len(t, got, 3)
	require.Equal(t, "s1", got[0].Text)
	require.Equal(t, "s2", got[1].Text)
	require.Equal(t, "g1", got[2].Text)
}

func TestPriorityMergeEmptyInputs(t *testing.T) {
	require.Empty(t, PriorityMerge{}.Merge(nil, nil, 5))

	onlyGeneral := PriorityMerge{}.Merge(nil, []models.RetrievedChunk{generalHit("g", 0.5)}, 5)
	require.Len(t, onlyGeneral, 1)
}

func TestVectorLiteralFormat(t *testing.T) {
	require.Equal(t, "[0.5,-1,0.25]", VectorLiteral([]float32{0.5, -1, 0.25}))
	require.Equal(t, "[]", VectorLiteral(nil))
}
