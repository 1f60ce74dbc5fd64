package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"portfolio-agent/internal/ai"
	"portfolio-agent/internal/corpus"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *countingEmbedder) EmbedBatch(_ context.Context, _ ai.EmbeddingConfig, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func writeDoc(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestBuildChunksAndEmbeds(t *testing.T) {
	root := filepath.Join(t.TempDir(), "knowledge")
	writeDoc(t, filepath.Join(root, "resume.md"), "---\ntitle: Resume\n---\n# Work\n\n"+words(1000))
	writeDoc(t, filepath.Join(root, "projects", "billing.mdx"), "Billing rewrite in **Go**.")
	writeDoc(t, filepath.Join(root, "draft.md"), "---\ndraft: true\n---\nnot ready")
	writeDoc(t, filepath.Join(root, "notes.txt"), "ignored")

	emb := &countingEmbedder{}
	b := NewBuilder(emb, Options{BatchSize: 2}, nil)
	chunks, err := b.Build(context.Background(), root)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		if len(ch.Embedding) != 2 {
			t.Fatalf("chunk %s has no embedding", ch.ID)
		}
	}
	want := []string{"billing.mdx::0", "resume.md::0", "resume.md::1"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if !strings.HasSuffix(chunks[1].Source, "knowledge/resume.md") {
		t.Fatalf("source = %q", chunks[1].Source)
	}
	if emb.calls != 2 {
		t.Fatalf("embed calls = %d, want 2 batches", emb.calls)
	}
}

func TestBuildHonoursOverlapSetting(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, filepath.Join(root, "resume.md"), words(1000))

	cases := []struct {
		name    string
		overlap int
		first   string
	}{
		{"zero disables overlap", 0, "w900"},
		{"explicit overlap", 100, "w800"},
		{"negative uses default", -1, "w750"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder(&countingEmbedder{}, Options{WindowWords: 900, OverlapWords: tc.overlap}, nil)
			chunks, err := b.Build(context.Background(), root)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if len(chunks) != 2 {
				t.Fatalf("chunks = %d", len(chunks))
			}
			if got := strings.Fields(chunks[1].Text)[0]; got != tc.first {
				t.Fatalf("second chunk starts at %q, want %q", got, tc.first)
			}
		})
	}
}

func TestBuildMissingRootIsEmpty(t *testing.T) {
	emb := &countingEmbedder{}
	chunks, err := NewBuilder(emb, Options{}, nil).Build(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(chunks) != 0 || emb.calls != 0 {
		t.Fatalf("chunks=%d calls=%d", len(chunks), emb.calls)
	}
}

func TestBuildPropagatesEmbedError(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, filepath.Join(root, "a.md"), "hello world")
	boom := errors.New("rate limited")
	_, err := NewBuilder(&countingEmbedder{err: boom}, Options{}, nil).Build(context.Background(), root)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteFileLoadsBack(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, filepath.Join(root, "docs", "a.md"), "alpha beta gamma")
	chunks, err := NewBuilder(&countingEmbedder{}, Options{}, nil).Build(context.Background(), filepath.Join(root, "docs"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out := filepath.Join(root, "data", "embeddings.json")
	if err := WriteFile(out, chunks); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := corpus.Load(out)
	if err != nil {
		t.Fatalf("corpus.Load: %v", err)
	}
	if c.Len() != 1 || c.Chunks()[0].Text != "alpha beta gamma" {
		t.Fatalf("loaded %+v", c.Chunks())
	}
	leftovers, _ := filepath.Glob(filepath.Join(root, "data", ".embeddings-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left: %v", leftovers)
	}
}

func TestWriteFileEmptyCorpus(t *testing.T) {
	out := filepath.Join(t.TempDir(), "embeddings.json")
	if err := WriteFile(out, nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("content = %q", raw)
	}
}
