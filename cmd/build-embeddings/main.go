package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portfolio-agent/internal/ai"
	"portfolio-agent/internal/config"
	"portfolio-agent/internal/ingest"
	"portfolio-agent/internal/platform/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	var docsDir, out string
	var window, overlap, batch int
	flag.StringVar(&docsDir, "docs", "knowledge", "directory of markdown and PDF documents")
	flag.StringVar(&out, "out", cfg.Corpus.Path, "corpus file to write")
	flag.IntVar(&window, "window", ingest.DefaultWindowWords, "words per chunk")
	flag.IntVar(&overlap, "overlap", ingest.DefaultOverlapWords, "words shared by consecutive chunks (0 disables)")
	flag.IntVar(&batch, "batch", 64, "chunks per embedding request")
	flag.Parse()

	log, err := logger.New(cfg.App.LogMode)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	builder := ingest.NewBuilder(ai.NewOpenAICompatibleClient(), ingest.Options{
		Embedding: ai.EmbeddingConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.EmbeddingModel,
		},
		WindowWords:  window,
		OverlapWords: overlap,
		BatchSize:    batch,
	}, log)

	chunks, err := builder.Build(ctx, docsDir)
	if err != nil {
		log.Fatal("build corpus failed", "docs", docsDir, "error", err)
	}
	if len(chunks) == 0 {
		log.Warn("no documents found, writing an empty corpus", "docs", docsDir)
	}
	if err := ingest.WriteFile(out, chunks); err != nil {
		log.Fatal("write corpus failed", "out", out, "error", err)
	}
	log.Info("corpus written", "out", out, "chunks", len(chunks), "elapsed", time.Since(started).String())
}
