package api

import (
	"errors"
	"net/http"
	"strconv"

	"lead-chat/internal/service"
	"lead-chat/internal/storage"
	"lead-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 解析JSON请求体, 失败时直接返回400
func bindJSON(c *gin.Context, op string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.L.Debug("Invalid request body", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDValue, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	userID, ok := userIDValue.(uint)
	if !ok || userID == 0 {
		logger.L.Error("Invalid userID type in context", zap.Any("userIDValue", userIDValue))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID in context"})
		return 0, false
	}
	return userID, true
}

func getUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(value), true
}

func getLeadIDFromParam(c *gin.Context) (uint, bool) {
	return getUintParam(c, "lead_id")
}

func getPaginationParams(c *gin.Context) (limit, offset int) {
	var err error
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// 服务层错误到HTTP状态码的映射
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyBody),
		errors.Is(err, service.ErrInvalidDisplayName),
		errors.Is(err, service.ErrBodyTooLong),
		errors.Is(err, service.ErrInvalidAttachment),
		errors.Is(err, service.ErrUnknownMentionTarget),
		errors.Is(err, service.ErrFileTypeNotAllowed),
		errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAuthor),
		errors.Is(err, storage.ErrInvalidSignature):
		return http.StatusForbidden
	case errors.Is(err, service.ErrLeadNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrMentionNotFound),
		errors.Is(err, service.ErrAttachmentNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// 写出错误响应, 内部错误只记录日志不返回细节
func respondError(c *gin.Context, op string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.L.Error("Request failed", zap.String("op", op), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	logger.L.Debug("Request rejected", zap.String("op", op), zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}
