package activities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lexrag/internal/chunking"
	"lexrag/internal/config"
	"lexrag/internal/embeddings"
	"lexrag/internal/ingestion"
	"lexrag/internal/models"
	"lexrag/internal/providers"
	"lexrag/internal/storage"
	"lexrag/internal/util"
	"lexrag/internal/vectorstore"
)

type Activities struct {
	cfg      config.Config
	loader   *ingestion.Loader
	chunker  *chunking.LegalChunker
	embedder *embeddings.Embedder
	store    *vectorstore.PostgresStore
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg.EmbedProviders, cfg.LLMProviders, cfg.EmbedDim)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.New(pm.EmbedProvider(), cfg.EmbedDim)
	if err != nil {
		return nil, err
	}
	chunker, err := chunking.NewLegalChunker(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.NewPostgresStore(db, cfg.EmbedDim)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:      cfg,
		loader:   ingestion.NewLoader(cfg.MinExtractedChars, cfg.MinAvgCharsPerPage),
		chunker:  chunker,
		embedder: embedder,
		store:    store,
	}, nil
}

func (a *Activities) ListPDFsActivity(ctx context.Context, in ListPDFsInput) (ListPDFsOutput, error) {
	_ = ctx
	entries, err := os.ReadDir(in.InputDir)
	if err != nil {
		return ListPDFsOutput{}, fmt.Errorf("read input dir: %w", err)
	}
	paths := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(in.InputDir, e.Name()))
		}
	}
	sort.Strings(paths)
	return ListPDFsOutput{Paths: paths}, nil
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	text, err := a.loader.LoadPDF(in.DocumentPath)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	f, err := os.Open(in.DocumentPath)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()
	hash, err := util.SHA256HexFromReader(f)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("hash file: %w", err)
	}
	return ExtractTextOutput{
		Text:        text,
		Language:    ingestion.DetectLanguage(text, a.cfg.DefaultLanguage),
		ContentHash: hash,
	}, nil
}

func (a *Activities) ChunkTextActivity(ctx context.Context, in ChunkTextInput) (ChunkTextOutput, error) {
	_ = ctx
	jurisdiction := in.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = a.cfg.DefaultJurisdict
	}
	chunks := a.chunker.Chunk(in.Text, map[string]any{
		"filename":     in.Filename,
		"language":     in.Language,
		"jurisdiction": jurisdiction,
		"source_type":  in.SourceType,
	})
	return ChunkTextOutput{Chunks: chunks}, nil
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	vectors, err := a.embedder.EmbedPassages(ctx, in.Texts)
	if err != nil {
		return EmbedChunksOutput{}, err
	}
	return EmbedChunksOutput{Vectors: vectors, ProviderName: a.cfg.EmbedProviders}, nil
}

func (a *Activities) StoreDocumentActivity(ctx context.Context, in StoreDocumentInput) error {
	chunks := vectorstore.TagSource(in.Chunks, models.SourceGeneral)
	return a.store.AddDocumentChunks(ctx, in.Document, chunks, in.Vectors)
}

func (a *Activities) WriteDocumentSummaryActivity(ctx context.Context, in WriteDocumentSummaryInput) error {
	_ = ctx
	outPath := filepath.Join(a.cfg.DataOutRoot, "documents", in.Filename+".json")
	return util.WriteJSONAtomic(outPath, in.Summary)
}

func (a *Activities) WriteIngestSummaryActivity(ctx context.Context, in WriteIngestSummaryInput) error {
	_ = ctx
	outPath := filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID+".json")
	return util.WriteJSONAtomic(outPath, in.Summary)
}
