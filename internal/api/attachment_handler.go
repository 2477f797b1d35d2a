package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"lead-chat/internal/service"
	"lead-chat/internal/storage"
	"lead-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttachmentHandler 处理附件上传和签名下载地址
type AttachmentHandler struct {
	attachmentService *service.AttachmentService
	localStore        *storage.LocalStore // 仅本地存储时非空
}

func NewAttachmentHandler(attachmentService *service.AttachmentService, localStore *storage.LocalStore) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		localStore:        localStore,
	}
}

// Upload 处理 multipart 上传并返回附件元数据
func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	leadID, ok := getLeadIDFromParam(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to get file from request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid file"})
		return
	}

	meta, err := h.attachmentService.Upload(c.Request.Context(), userID, leadID, file)
	if err != nil {
		respondError(c, "upload attachment", err)
		return
	}
	c.JSON(http.StatusCreated, meta)
}

// SignedURL 为附件路径生成限时下载地址
func (h *AttachmentHandler) SignedURL(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	var ttl time.Duration
	if raw := c.Query("ttl"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ttl"})
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	url, expiresAt, err := h.attachmentService.SignedDownloadURL(c.Request.Context(), path, ttl)
	if err != nil {
		respondError(c, "signed url", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_at": expiresAt})
}

// ServeFile 校验能力URL后返回本地文件
func (h *AttachmentHandler) ServeFile(c *gin.Context) {
	if h.localStore == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	key := strings.TrimPrefix(c.Param("path"), "/")
	filePath, err := h.localStore.Open(key, c.Query("expires"), c.Query("sig"))
	if err != nil {
		respondError(c, "serve file", err)
		return
	}
	c.File(filePath)
}
