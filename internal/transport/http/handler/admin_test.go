package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/app"
	"portfolio-agent/internal/corpus"
	"portfolio-agent/internal/model"
	"portfolio-agent/internal/transport/http/response"
)

func adminRouter(holder *corpus.Holder, store *memoryAuditStore) *gin.Engine {
	agent := app.NewAgentService(nil, holder, app.AgentOptions{}, nil)
	h := NewAdminHandler(agent, newAuditService(store))
	r := gin.New()
	r.GET("/corpus", h.Corpus)
	r.POST("/corpus/reload", h.ReloadCorpus)
	r.GET("/audit", h.Audit)
	return r
}

func testCorpus() *corpus.Corpus {
	return corpus.New([]model.KnowledgeChunk{
		{ID: "resume::0", Text: "Payments lead.", Source: "resume.md", Embedding: []float32{1, 0}},
		{ID: "about::0", Text: "Hiker.", Source: "about.md", Embedding: []float32{0, 1}},
	})
}

func TestAdminCorpusInfo(t *testing.T) {
	r := adminRouter(corpus.NewHolder("data/embeddings.json", testCorpus()), &memoryAuditStore{})
	rec := doJSON(t, r, http.MethodGet, "/corpus", nil, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["chunks"] != float64(2) {
		t.Fatalf("chunks = %v", data["chunks"])
	}
	if sources := data["sources"].([]any); len(sources) != 2 || sources[0] != "about.md" {
		t.Fatalf("sources = %v", sources)
	}
}

func TestAdminReloadCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	holder := corpus.NewHolder(path, testCorpus())
	r := adminRouter(holder, &memoryAuditStore{})

	rec := doJSON(t, r, http.MethodPost, "/corpus/reload", nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("missing file: status = %d", rec.Code)
	}
	if code := decodeBody(t, rec)["code"]; code != float64(response.CodeCorpusReload) {
		t.Fatalf("code = %v", code)
	}
	if holder.Current().Len() != 2 {
		t.Fatal("failed reload must keep the previous snapshot")
	}

	artifact := `[{"id":"new::0","text":"Fresh.","source":"new.md","embedding":[0.5,0.5]}]`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, r, http.MethodPost, "/corpus/reload", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if holder.Current().Len() != 1 {
		t.Fatalf("chunks after reload = %d", holder.Current().Len())
	}
}

func TestAdminAuditSummary(t *testing.T) {
	store := &memoryAuditStore{configured: true, entries: []model.AuditEntry{
		{Timestamp: "2025-01-02T10:00:00.000Z", Question: "Q2", Answer: "A2", Confident: true},
		{Timestamp: "2025-01-01T10:00:00.000Z", Question: "Q1", Answer: "I don't know."},
	}}
	r := adminRouter(corpus.NewHolder("", nil), store)

	rec := doJSON(t, r, http.MethodGet, "/audit?days=7", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["total"] != float64(2) || data["confident"] != float64(1) {
		t.Fatalf("data = %v", data)
	}
}

func TestAdminAuditValidatesDays(t *testing.T) {
	r := adminRouter(corpus.NewHolder("", nil), &memoryAuditStore{configured: true})
	for _, q := range []string{"0", "91", "abc", "-3"} {
		rec := doJSON(t, r, http.MethodGet, "/audit?days="+q, nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("days=%s: status = %d", q, rec.Code)
		}
	}
}

func TestAdminAuditWithoutStore(t *testing.T) {
	r := adminRouter(corpus.NewHolder("", nil), &memoryAuditStore{})
	rec := doJSON(t, r, http.MethodGet, "/audit", nil, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := decodeBody(t, rec)["code"]; code != float64(response.CodeAuditNotConfigured) {
		t.Fatalf("code = %v", code)
	}
}
