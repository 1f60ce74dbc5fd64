package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/app"
	"portfolio-agent/internal/model"
	"portfolio-agent/internal/transport/http/response"
)

type Answerer interface {
	Answer(ctx context.Context, messages []model.ChatMessage) (*app.AgentReply, error)
}

type AgentHandler struct {
	agent Answerer
}

type AgentRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

func NewAgentHandler(agent Answerer) *AgentHandler {
	return &AgentHandler{agent: agent}
}

// Ask answers the last user message of the posted conversation.
func (h *AgentHandler) Ask(c *gin.Context) {
	var req AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.PlainError(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	reply, err := h.agent.Answer(c.Request.Context(), req.Messages)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.PlainError(c, http.StatusBadRequest, "a non-empty user message is required")
		default:
			response.PlainError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply.Reply})
}
