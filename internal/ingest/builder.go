// Package ingest builds the knowledge corpus: it walks a documents directory,
// extracts text from markdown and PDF files, splits it into overlapping word
// windows and requests an embedding for every window.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"portfolio-agent/internal/ai"
	"portfolio-agent/internal/model"
	"portfolio-agent/internal/pkg/mdtext"
	"portfolio-agent/internal/pkg/pdfextract"
	"portfolio-agent/internal/platform/logger"
)

const (
	defaultBatchSize   = 64
	defaultConcurrency = 2
)

// BatchEmbedder returns one vector per input, in order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

type Options struct {
	Embedding   ai.EmbeddingConfig
	WindowWords int
	// OverlapWords of zero disables overlap; negative uses DefaultOverlapWords.
	OverlapWords int
	BatchSize    int
	Concurrency  int
}

type Builder struct {
	embedder BatchEmbedder
	opts     Options
	log      *logger.Logger
}

func NewBuilder(embedder BatchEmbedder, opts Options, log *logger.Logger) *Builder {
	if opts.WindowWords <= 0 {
		opts.WindowWords = DefaultWindowWords
	}
	if opts.OverlapWords < 0 {
		opts.OverlapWords = DefaultOverlapWords
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{embedder: embedder, opts: opts, log: log}
}

// Build reads every supported document under root and returns embedded chunks.
// A missing root yields an empty corpus.
func (b *Builder) Build(ctx context.Context, root string) ([]model.KnowledgeChunk, error) {
	files, err := FindDocuments(root)
	if err != nil {
		return nil, err
	}

	chunks := make([]model.KnowledgeChunk, 0)
	for _, file := range files {
		text, skip, err := ReadDocument(file)
		if err != nil {
			return nil, err
		}
		if skip {
			b.log.Info("skipping draft document", "file", file)
			continue
		}
		parts := Chunk(text, b.opts.WindowWords, b.opts.OverlapWords)
		for idx, part := range parts {
			chunks = append(chunks, model.KnowledgeChunk{
				ID:     fmt.Sprintf("%s::%d", filepath.Base(file), idx),
				Text:   part,
				Source: filepath.ToSlash(file),
			})
		}
		b.log.Debug("document chunked", "file", file, "chunks", len(parts))
	}

	if len(chunks) == 0 {
		return chunks, nil
	}
	if err := b.embed(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (b *Builder) embed(ctx context.Context, chunks []model.KnowledgeChunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	for start := 0; start < len(chunks); start += b.opts.BatchSize {
		end := start + b.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, ch := range batch {
				texts[i] = ch.Text
			}
			vectors, err := b.embedder.EmbedBatch(gctx, b.opts.Embedding, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed chunks: got %d vectors for %d inputs", len(vectors), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}
	return g.Wait()
}

// FindDocuments lists .md, .mdx and .pdf files under root in lexical order.
func FindDocuments(root string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".mdx", ".pdf":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadDocument extracts the plain text of a markdown or PDF file. skip is
// true for markdown marked as a draft.
func ReadDocument(path string) (text string, skip bool, err error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = pdfextract.ExtractFile(path)
		if err != nil {
			return "", false, fmt.Errorf("read %s: %w", path, err)
		}
		return text, false, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := mdtext.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Text, doc.IsDraft(), nil
}

// WriteFile stores chunks as indented JSON. The file is written next to its
// destination and renamed into place so readers never see a partial file.
func WriteFile(path string, chunks []model.KnowledgeChunk) error {
	if chunks == nil {
		chunks = []model.KnowledgeChunk{}
	}
	payload, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".embeddings-*.json")
	if err != nil {
		return fmt.Errorf("create temp corpus: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp corpus: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp corpus: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace corpus: %w", err)
	}
	return nil
}
