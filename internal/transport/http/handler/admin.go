package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/app"
	"portfolio-agent/internal/transport/http/response"
)

type AdminHandler struct {
	agent *app.AgentService
	audit *app.AuditService
}

func NewAdminHandler(agent *app.AgentService, audit *app.AuditService) *AdminHandler {
	return &AdminHandler{agent: agent, audit: audit}
}

func (h *AdminHandler) Corpus(c *gin.Context) {
	response.OK(c, h.agent.CorpusInfo())
}

func (h *AdminHandler) ReloadCorpus(c *gin.Context) {
	info, err := h.agent.ReloadCorpus()
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeCorpusReload, err.Error())
		return
	}
	response.OK(c, info)
}

// Audit lists the exchanges of the last ?days=N days (1..90, default 14).
func (h *AdminHandler) Audit(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 90 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "days must be an integer between 1 and 90")
			return
		}
		days = n
	}

	items, err := h.audit.Recent(c.Request.Context(), days)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAuditNotConfigured):
			response.Error(c, http.StatusConflict, response.CodeAuditNotConfigured, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read audit log failed")
		}
		return
	}

	confident := 0
	for _, it := range items {
		if it.Confident {
			confident++
		}
	}
	response.OK(c, gin.H{
		"items":     items,
		"total":     len(items),
		"confident": confident,
	})
}
