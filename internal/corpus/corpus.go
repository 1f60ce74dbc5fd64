// Package corpus holds the knowledge chunks that answers are grounded on.
//
// A Corpus is built completely before it is published and is never mutated
// afterwards. Holder hands the current snapshot to readers; a reload builds a
// new Corpus and swaps the pointer.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"portfolio-agent/internal/model"
)

type Corpus struct {
	chunks   []model.KnowledgeChunk
	sources  []string
	path     string
	loadedAt time.Time
}

// New builds a snapshot from in-memory chunks.
func New(chunks []model.KnowledgeChunk) *Corpus {
	owned := make([]model.KnowledgeChunk, len(chunks))
	copy(owned, chunks)

	seen := make(map[string]struct{}, len(owned))
	sources := make([]string, 0)
	for _, ch := range owned {
		if _, ok := seen[ch.Source]; ok {
			continue
		}
		seen[ch.Source] = struct{}{}
		sources = append(sources, ch.Source)
	}
	sort.Strings(sources)

	return &Corpus{
		chunks:   owned,
		sources:  sources,
		loadedAt: time.Now().UTC(),
	}
}

// Load reads a JSON array of knowledge chunks from path.
func Load(path string) (*Corpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus failed: %w", err)
	}
	var chunks []model.KnowledgeChunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("parse corpus %s failed: %w", path, err)
	}
	for i, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return nil, fmt.Errorf("corpus chunk %d (%s) has no embedding", i, ch.ID)
		}
	}
	c := New(chunks)
	c.path = path
	return c, nil
}

// Chunks returns the records in file order. Callers must not modify the slice.
func (c *Corpus) Chunks() []model.KnowledgeChunk {
	if c == nil {
		return nil
	}
	return c.chunks
}

func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.chunks)
}

// Sources returns the distinct source names, sorted.
func (c *Corpus) Sources() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.sources))
	copy(out, c.sources)
	return out
}

func (c *Corpus) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

func (c *Corpus) LoadedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.loadedAt
}

type Holder struct {
	path    string
	current atomic.Pointer[Corpus]
}

// NewHolder publishes initial as the current snapshot. Reload re-reads path.
func NewHolder(path string, initial *Corpus) *Holder {
	h := &Holder{path: path}
	if initial == nil {
		initial = New(nil)
	}
	h.current.Store(initial)
	return h
}

// Current returns the published snapshot. It is never nil.
func (h *Holder) Current() *Corpus {
	return h.current.Load()
}

func (h *Holder) Path() string {
	return h.path
}

// Reload loads the file again and publishes it. On error the previous
// snapshot stays in place.
func (h *Holder) Reload() (*Corpus, error) {
	next, err := Load(h.path)
	if err != nil {
		return nil, err
	}
	h.current.Store(next)
	return next, nil
}
