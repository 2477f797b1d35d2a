package api

import (
	"net/http"

	"lead-chat/internal/service"

	"github.com/gin-gonic/gin"
)

// 处理认证相关的HTTP请求
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// 处理用户注册请求
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, "register", &req) {
		return
	}

	user, err := h.authService.Register(req)
	if err != nil {
		respondError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// 处理用户登陆请求
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, "login", &req) {
		return
	}

	result, err := h.authService.Login(req)
	if err != nil {
		respondError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// 当前登录用户
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	user, err := h.authService.Profile(userID)
	if err != nil {
		respondError(c, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
