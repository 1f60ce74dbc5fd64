package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/app"
	"portfolio-agent/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryAuditStore struct {
	mu         sync.Mutex
	configured bool
	entries    []model.AuditEntry
	appendErr  error
	recentErr  error
}

func (s *memoryAuditStore) Append(_ context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryAuditStore) Recent(_ context.Context, _ int) ([]model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	out := append([]model.AuditEntry(nil), s.entries...)
	return out, nil
}

func (s *memoryAuditStore) Configured() bool {
	return s.configured
}

func newAuditService(store *memoryAuditStore) *app.AuditService {
	return app.NewAuditService(store, nil, nil, 14, nil)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
