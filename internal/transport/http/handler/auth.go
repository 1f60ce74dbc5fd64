package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/app"
	"portfolio-agent/internal/model"
	"portfolio-agent/internal/transport/http/middleware"
	"portfolio-agent/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AdminAuthService
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

func NewAuthHandler(authService *app.AdminAuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	response.OK(c, gin.H{
		"token":      result.Token,
		"username":   result.Username,
		"expires_at": model.FormatTimestamp(result.ExpiresAt),
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	response.OK(c, gin.H{"username": c.GetString(middleware.ContextUsernameKey)})
}
