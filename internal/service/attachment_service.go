package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"lead-chat/internal/repository"
	"lead-chat/internal/storage"
	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttachmentService 管理附件上传和签名下载地址
type AttachmentService struct {
	store          storage.Store
	attachmentRepo *repository.AttachmentRepository
	leadRepo       *repository.LeadRepository
	cfg            config.StorageConfig
}

func NewAttachmentService(store storage.Store, attachmentRepo *repository.AttachmentRepository, leadRepo *repository.LeadRepository, cfg config.StorageConfig) *AttachmentService {
	return &AttachmentService{
		store:          store,
		attachmentRepo: attachmentRepo,
		leadRepo:       leadRepo,
		cfg:            cfg,
	}
}

func (s *AttachmentService) extAllowed(ext string) bool {
	if len(s.cfg.AllowedExts) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedExts {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// Upload 保存上传的文件并返回元数据, 失败时不返回任何引用
func (s *AttachmentService) Upload(ctx context.Context, userID, leadID uint, file *multipart.FileHeader) (*AttachmentMeta, error) {
	exists, err := s.leadRepo.Exists(leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to check lead: %w", err)
	}
	if !exists {
		return nil, ErrLeadNotFound
	}

	if s.cfg.MaxFileSize > 0 && file.Size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit", ErrFileTooLarge,
			humanize.IBytes(uint64(file.Size)), humanize.IBytes(uint64(s.cfg.MaxFileSize)))
	}

	name := storage.SanitizeName(file.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !s.extAllowed(ext) {
		return nil, fmt.Errorf("%w: %q", ErrFileTypeNotAllowed, ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	key := fmt.Sprintf("leads/%d/%s_%s", leadID, uuid.NewString(), name)
	mimeType := storage.DetermineMimeType(ext)
	if err := s.store.Put(ctx, key, mimeType, src, file.Size); err != nil {
		logger.L.Error("Failed to store attachment", zap.String("key", key), zap.Uint("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	logger.L.Info("Attachment stored successfully",
		zap.String("key", key),
		zap.String("size", humanize.IBytes(uint64(file.Size))),
		zap.Uint("userID", userID),
		zap.Uint("leadID", leadID))

	return &AttachmentMeta{
		Path: key,
		Name: file.Filename,
		Size: file.Size,
		Type: mimeType,
	}, nil
}

// 有效期不超过配置的上限, 未指定时使用上限
func (s *AttachmentService) clampTTL(requested time.Duration) time.Duration {
	limit := s.cfg.SignedURLDuration()
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

// SignedDownloadURL 为已关联到消息的附件生成限时下载地址, 地址不做持久化
func (s *AttachmentService) SignedDownloadURL(ctx context.Context, path string, requested time.Duration) (string, time.Time, error) {
	if err := storage.ValidateKey(path); err != nil {
		return "", time.Time{}, err
	}
	attachment, err := s.attachmentRepo.FindByPath(path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to find attachment: %w", err)
	}
	if attachment == nil {
		return "", time.Time{}, ErrAttachmentNotFound
	}

	ttl := s.clampTTL(requested)
	url, err := s.store.SignedURL(ctx, path, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign attachment url: %w", err)
	}
	return url, time.Now().Add(ttl), nil
}
