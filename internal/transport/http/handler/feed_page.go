package handler

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/app"
	"portfolio-agent/internal/model"
	"portfolio-agent/internal/pkg/answertext"
)

//go:embed templates/feed.html
var templateFS embed.FS

var feedTemplate = template.Must(template.ParseFS(templateFS, "templates/feed.html"))

type FeedPageHandler struct {
	audit       *app.AuditService
	agentURL    string
	suggestions []string
}

type feedItem struct {
	When           string
	Question       string
	AnswerHTML     template.HTML
	Weak           bool
	Suggestion     string
	SuggestionLink string
}

type feedPage struct {
	Items []feedItem
	Error string
}

func NewFeedPageHandler(audit *app.AuditService, agentURL string, suggestions []string) *FeedPageHandler {
	if agentURL == "" {
		agentURL = "/agent"
	}
	return &FeedPageHandler{audit: audit, agentURL: agentURL, suggestions: suggestions}
}

// Render serves the "Questions & Answers" page.
func (h *FeedPageHandler) Render(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	page := feedPage{}
	entries, err := h.audit.Recent(c.Request.Context(), 0)
	if err != nil {
		_ = c.Error(err)
		page.Error = "The question log is unavailable right now."
	}
	for _, e := range entries {
		page.Items = append(page.Items, h.item(e))
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := feedTemplate.Execute(c.Writer, page); err != nil {
		_ = c.Error(err)
	}
}

func (h *FeedPageHandler) item(e model.AuditEntry) feedItem {
	it := feedItem{
		When:     formatWhen(e.Timestamp),
		Question: e.Question,
		// DisplayHTML escapes the answer before inserting anchors.
		AnswerHTML: template.HTML(answertext.DisplayHTML(e.Answer)),
		Weak:       !e.Confident,
	}
	if it.Weak {
		if s, ok := answertext.PickSuggestion(h.suggestions, nil, e.Question); ok {
			it.Suggestion = s
			it.SuggestionLink = h.agentURL + "?q=" + url.QueryEscape(s)
		}
	}
	return it
}

func formatWhen(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return strings.TrimSpace(ts)
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}
