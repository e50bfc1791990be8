package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"lexrag/internal/activities"
	"lexrag/internal/config"
	"lexrag/internal/logging"
	"lexrag/internal/storage"
	"lexrag/internal/workflows"
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

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatalw("connect temporal", "error", err)
	}
	defer c.Close()

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

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	a, err := activities.New(cfg, db)
	if err != nil {
		logger.Fatalw("build activities", "error", err)
	}
	activities.Register(w, a)

	logger.Infow("lexrag worker started",
		"temporal", cfg.TemporalAddress,
		"queue", cfg.TemporalTaskQueue,
		"embed_providers", cfg.EmbedProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatalw("run worker", "error", err)
	}
}
