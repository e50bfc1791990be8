package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"

	"lexrag/internal/api"
	"lexrag/internal/chunking"
	"lexrag/internal/config"
	"lexrag/internal/embeddings"
	"lexrag/internal/ingestion"
	"lexrag/internal/logging"
	"lexrag/internal/providers"
	"lexrag/internal/rag"
	"lexrag/internal/storage"
	"lexrag/internal/vectorstore"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatalw("connect postgres", "error", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx, cfg.EmbedDim); err != nil {
		logger.Fatalw("ensure schema", "error", err)
	}

	pm, err := providers.NewManager(cfg.EmbedProviders, cfg.LLMProviders, cfg.EmbedDim)
	if err != nil {
		logger.Fatalw("build providers", "error", err)
	}
	embedder, err := embeddings.New(pm.EmbedProvider(), cfg.EmbedDim)
	if err != nil {
		logger.Fatalw("build embedder", "error", err)
	}
	chunker, err := chunking.NewLegalChunker(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	if err != nil {
		logger.Fatalw("build chunker", "error", err)
	}

	sessionStore, err := vectorstore.NewSessionStore(cfg.EmbedDim, storage.NewChunkRepo(db))
	if err != nil {
		logger.Fatalw("build session store", "error", err)
	}
	generalStore, err := vectorstore.NewPostgresStore(db, cfg.EmbedDim)
	if err != nil {
		logger.Fatalw("build general store", "error", err)
	}
	manager, err := vectorstore.NewManager(vectorstore.ManagerOptions{
		Session:      sessionStore,
		General:      generalStore,
		Embedder:     embedder,
		Policy:       vectorstore.PriorityMerge{},
		Log:          logger,
		SnapshotPath: cfg.SessionIndexPath,
		SessionTopK:  cfg.SessionTopK,
		GeneralTopK:  cfg.GeneralTopK,
	})
	if err != nil {
		logger.Fatalw("build vector manager", "error", err)
	}
	if err := manager.RestoreSession(ctx); err != nil {
		logger.Fatalw("restore session index", "error", err)
	}

	pipeline, err := rag.NewPipeline(rag.PipelineOptions{
		Retriever:   manager,
		LLM:         pm.LLMProvider(),
		QueryLog:    storage.NewQueryLogRepo(db),
		Log:         logger,
		DefaultLang: cfg.DefaultLanguage,
		TopK:        cfg.SessionTopK + cfg.GeneralTopK,
	})
	if err != nil {
		logger.Fatalw("build pipeline", "error", err)
	}

	var temporal tclient.Client
	if tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress}); err != nil {
		logger.Warnw("temporal unavailable, knowledge ingest endpoints disabled", "error", err)
	} else {
		temporal = tc
		defer tc.Close()
	}

	srv := api.NewServer(api.ServerOptions{
		Cfg:      cfg,
		Log:      logger,
		Manager:  manager,
		Pipeline: pipeline,
		Loader:   ingestion.NewLoader(cfg.MinExtractedChars, cfg.MinAvgCharsPerPage),
		Chunker:  chunker,
		DocRepo:  storage.NewDocumentRepo(db),
		Temporal: temporal,
	})

	logger.Infow("lexrag api listening",
		"addr", cfg.APIAddr,
		"embed_providers", cfg.EmbedProviders,
		"llm_providers", cfg.LLMProviders,
		"embed_dim", cfg.EmbedDim)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		logger.Fatalw("serve http", "error", err)
	}
}
