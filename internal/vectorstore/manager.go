package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lexrag/internal/models"
)

// SessionBackend is what the manager needs from the ephemeral store.
type SessionBackend interface {
	Add(ctx context.Context, chunks []models.ChunkPayload, vectors [][]float32) error
	Search(ctx context.Context, queryVec []float32, k int) ([]models.RetrievedChunk, error)
	Count() int64
	Save(path string) error
	Load(path string) error
	Reset(ctx context.Context) error
}

// GeneralBackend is what the manager needs from the persistent store.
type GeneralBackend interface {
	AddDocumentChunks(ctx context.Context, doc models.Document, chunks []models.ChunkPayload, vectors [][]float32) error
	SimilaritySearch(ctx context.Context, queryVec []float32, k int) ([]models.RetrievedChunk, error)
}

// TagSource returns a copy of chunks whose metadata carries the given
// retrieval source marker. Chunks from one document may share a single
// metadata map, so every copy gets its own.
func TagSource(chunks []models.ChunkPayload, source string) []models.ChunkPayload {
	out := make([]models.ChunkPayload, len(chunks))
	for i, ch := range chunks {
		meta := make(map[string]any, len(ch.Metadata)+1)
		for k, v := range ch.Metadata {
			meta[k] = v
		}
		meta["source"] = source
		out[i] = models.ChunkPayload{Text: ch.Text, Metadata: meta}
	}
	return out
}

// QueryEmbedder is the embedding port the manager drives. The query is
// embedded exactly once per Search and the same vector goes to both
// backends.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// Manager fronts both vector stores behind one retrieval surface.
// Writes are routed by document kind; reads fan out to both stores and
// merge through the configured policy. One failed backend degrades the
// search to partial results instead of failing it.
type Manager struct {
	session      SessionBackend
	general      GeneralBackend
	embedder     QueryEmbedder
	policy       MergePolicy
	log          *zap.SugaredLogger
	snapshotPath string
	sessionTopK  int
	generalTopK  int
}

type ManagerOptions struct {
	Session      SessionBackend
	General      GeneralBackend
	Embedder     QueryEmbedder
	Policy       MergePolicy
	Log          *zap.SugaredLogger
	SnapshotPath string
	SessionTopK  int
	GeneralTopK  int
}

func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Session == nil || opts.General == nil {
		return nil, fmt.Errorf("manager needs both a session and a general store")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("manager needs an embedder")
	}
	if opts.Policy == nil {
		opts.Policy = PriorityMerge{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.SessionTopK <= 0 {
		opts.SessionTopK = 5
	}
	if opts.GeneralTopK <= 0 {
		opts.GeneralTopK = 5
	}
	return &Manager{
		session:      opts.Session,
		general:      opts.General,
		embedder:     opts.Embedder,
		policy:       opts.Policy,
		log:          opts.Log,
		snapshotPath: opts.SnapshotPath,
		sessionTopK:  opts.SessionTopK,
		generalTopK:  opts.GeneralTopK,
	}, nil
}

// RestoreSession loads the session index snapshot if one exists. When
// the snapshot is missing or unreadable the session starts empty and
// any leftover session rows are cleared so positions stay aligned.
func (m *Manager) RestoreSession(ctx context.Context) error {
	if m.snapshotPath == "" {
		return m.session.Reset(ctx)
	}
	err := m.session.Load(m.snapshotPath)
	if err == nil {
		m.log.Infow("session index restored", "path", m.snapshotPath, "vectors", m.session.Count())
		return nil
	}
	if !IsIndexUnavailable(err) {
		return err
	}
	m.log.Infow("no usable session index snapshot, starting empty", "path", m.snapshotPath)
	return m.session.Reset(ctx)
}

// AddSessionDocument chunks are tagged with the session source marker,
// embedded as passages and appended to the ephemeral store, then the
// index is snapshotted to disk. A failed snapshot does not undo the
// add.
func (m *Manager) AddSessionDocument(ctx context.Context, chunks []models.ChunkPayload) error {
	if len(chunks) == 0 {
		return nil
	}
	chunks = TagSource(chunks, models.SourceSession)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := m.embedder.EmbedPassages(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed session document: %w", err)
	}
	if err := m.session.Add(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("add session document: %w", err)
	}
	if m.snapshotPath != "" {
		if err := m.session.Save(m.snapshotPath); err != nil {
			m.log.Warnw("save session index snapshot", "path", m.snapshotPath, "error", err)
		}
	}
	m.log.Infow("session document indexed", "chunks", len(chunks), "total_vectors", m.session.Count())
	return nil
}

// AddGeneralDocument tags the chunks with the general source marker,
// embeds them as passages and writes the document plus its chunks to
// the persistent store in one transaction.
func (m *Manager) AddGeneralDocument(ctx context.Context, doc models.Document, chunks []models.ChunkPayload) error {
	if len(chunks) == 0 {
		return nil
	}
	chunks = TagSource(chunks, models.SourceGeneral)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := m.embedder.EmbedPassages(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed general document %s: %w", doc.Filename, err)
	}
	if err := m.general.AddDocumentChunks(ctx, doc, chunks, vectors); err != nil {
		return fmt.Errorf("store general document %s: %w", doc.Filename, err)
	}
	m.log.Infow("general document stored", "filename", doc.Filename, "chunks", len(chunks))
	return nil
}

// Search embeds the query once, runs top-k against both stores and
// merges through the policy. If one store fails the other's results are
// still returned; only a double failure is an error.
func (m *Manager) Search(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		topK = m.sessionTopK + m.generalTopK
	}
	queryVec, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sessionHits, sessErr := m.session.Search(ctx, queryVec, m.sessionTopK)
	if sessErr != nil {
		m.log.Warnw("session store search failed, degrading to general only", "error", sessErr)
	}
	generalHits, genErr := m.general.SimilaritySearch(ctx, queryVec, m.generalTopK)
	if genErr != nil {
		m.log.Warnw("general store search failed, degrading to session only", "error", genErr)
	}
	if sessErr != nil && genErr != nil {
		return nil, fmt.Errorf("both stores failed: session: %v; general: %w", sessErr, genErr)
	}

	merged := m.policy.Merge(sessionHits, generalHits, topK)
	m.log.Debugw("hybrid search complete",
		"policy", m.policy.Name(),
		"session_hits", len(sessionHits),
		"general_hits", len(generalHits),
		"returned", len(merged))
	return merged, nil
}

// SessionChunkCount reports the number of vectors in the session index.
func (m *Manager) SessionChunkCount() int64 {
	return m.session.Count()
}
