package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrInvalidPath      = errors.New("invalid storage path")
	ErrInvalidSignature = errors.New("invalid or expired signature")
	ErrNotFound         = errors.New("object not found")
)

// Store 附件的二进制存储
type Store interface {
	// Put 写入对象, key 为不透明的存储路径
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// SignedURL 生成限时可访问的下载地址
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// 根据配置创建相应的存储实现
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	logger.L.Info("Creating attachment store", zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case "local":
		return NewLocalStore(cfg.Local)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, errors.New("unsupported storage provider")
	}
}

// ValidateKey 检查存储键是否为 leads/ 下的相对路径
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidPath
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrInvalidPath
		}
	}
	if path.Clean(key) != key || !strings.HasPrefix(key, "leads/") {
		return ErrInvalidPath
	}
	return nil
}

// SanitizeName 只保留 [A-Za-z0-9._-], 其余字符替换为下划线
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "_")
	}
	if strings.Trim(name, "._") == "" {
		name = "file"
	}
	return name
}

// 确定文件的MIME类型
func DetermineMimeType(fileExt string) string {
	mimeType := "application/octet-stream" // 默认类型
	switch strings.ToLower(fileExt) {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".png":
		mimeType = "image/png"
	case ".gif":
		mimeType = "image/gif"
	case ".pdf":
		mimeType = "application/pdf"
	case ".doc":
		mimeType = "application/msword"
	case ".docx":
		mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		mimeType = "application/vnd.ms-excel"
	case ".xlsx":
		mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		mimeType = "text/csv"
	case ".ppt":
		mimeType = "application/vnd.ms-powerpoint"
	case ".pptx":
		mimeType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".txt":
		mimeType = "text/plain"
	}
	return mimeType
}
