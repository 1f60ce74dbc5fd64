package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/app"
	"portfolio-agent/internal/model"
)

// MissingStoreMessage is reported by the feed when no audit store is configured.
const MissingStoreMessage = "Missing GH_TOKEN or GH_REPO"

type AuditHandler struct {
	audit *app.AuditService
}

type AuditRequest struct {
	Timestamp string `json:"ts"`
	Path      string `json:"path"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Confident *bool  `json:"confident"`
	UserAgent string `json:"ua"`
}

func NewAuditHandler(audit *app.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Append records one exchange. Failures are reported in the body but never
// as an error status, so the widget can fire and forget.
func (h *AuditHandler) Append(c *gin.Context) {
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "error": "invalid request payload"})
		return
	}
	ua := req.UserAgent
	if strings.TrimSpace(ua) == "" {
		ua = c.Request.UserAgent()
	}

	result, err := h.audit.Submit(c.Request.Context(), app.AuditInput{
		Timestamp: req.Timestamp,
		Path:      req.Path,
		Question:  req.Question,
		Answer:    req.Answer,
		Confident: req.Confident,
		UserAgent: ua,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusOK, gin.H{"ok": true, "error": err.Error()})
		return
	}

	body := gin.H{"ok": true}
	if result.Queued {
		body["queued"] = true
	}
	c.JSON(http.StatusOK, body)
}

// Feed returns the recent exchanges, newest first.
func (h *AuditHandler) Feed(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	items, err := h.audit.Recent(c.Request.Context(), 0)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, app.ErrAuditNotConfigured) {
			msg = MissingStoreMessage
		} else {
			_ = c.Error(err)
		}
		c.JSON(http.StatusOK, gin.H{"items": []model.AuditEntry{}, "error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
