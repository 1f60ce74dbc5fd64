package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"portfolio-agent/internal/platform/logger"
)

const twoChunks = `[
  {"id": "a.md::0", "text": "alpha", "source": "a.md", "embedding": [1, 0]},
  {"id": "b.md::0", "text": "beta", "source": "b.md", "embedding": [0, 1]},
  {"id": "a.md::1", "text": "alpha two", "source": "a.md", "embedding": [1, 1]}
]`

func writeCorpus(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "embeddings.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoadKeepsFileOrder(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), twoChunks)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if got := c.Chunks()[2].ID; got != "a.md::1" {
		t.Fatalf("third chunk = %q", got)
	}
	sources := c.Sources()
	if len(sources) != 2 || sources[0] != "a.md" || sources[1] != "b.md" {
		t.Fatalf("sources = %v", sources)
	}
	if c.Path() != path || c.LoadedAt().IsZero() {
		t.Fatalf("unexpected metadata path=%q loadedAt=%v", c.Path(), c.LoadedAt())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeCorpus(t, dir, "{not json")); err == nil {
		t.Fatal("expected error for malformed file")
	}
	if _, err := Load(writeCorpus(t, dir, `[{"id":"x","text":"t","source":"s"}]`)); err == nil {
		t.Fatal("expected error for chunk without embedding")
	}
}

func TestHolderReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpus(t, dir, twoChunks)
	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := NewHolder(path, initial)

	writeCorpus(t, dir, "garbage")
	if _, err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if h.Current() != initial {
		t.Fatal("snapshot replaced after failed reload")
	}

	writeCorpus(t, dir, `[{"id":"c.md::0","text":"gamma","source":"c.md","embedding":[1]}]`)
	next, err := h.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if h.Current() != next || next.Len() != 1 {
		t.Fatalf("current snapshot not swapped")
	}
}

func TestHolderWithoutInitialIsEmpty(t *testing.T) {
	h := NewHolder("unused.json", nil)
	if h.Current() == nil || h.Current().Len() != 0 {
		t.Fatal("expected empty snapshot")
	}
}

func TestNewCopiesInput(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), twoChunks)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	chunks := append(loaded.Chunks()[:0:0], loaded.Chunks()...)
	c := New(chunks)
	chunks[0].Text = "mutated"
	if c.Chunks()[0].Text != "alpha" {
		t.Fatal("corpus shares caller slice")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpus(t, dir, twoChunks)
	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := NewHolder(path, initial)

	w, err := NewWatcher(h, logger.Nop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	reloaded := make(chan *Corpus, 1)
	w.onReload = func(c *Corpus) {
		select {
		case reloaded <- c:
		default:
		}
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	writeCorpus(t, dir, `[{"id":"c.md::0","text":"gamma","source":"c.md","embedding":[1]}]`)

	select {
	case c := <-reloaded:
		if c.Len() != 1 || h.Current() != c {
			t.Fatalf("unexpected snapshot after reload: %d chunks", c.Len())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}
