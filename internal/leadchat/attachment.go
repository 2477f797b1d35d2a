package leadchat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lead-chat/internal/model"
)

// DownloadURLTTL 签名下载地址的固定有效期
const DownloadURLTTL = 60 * time.Second

// URLSigner DataLayer 中生成签名地址的部分
type URLSigner interface {
	CreateSignedDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// DownloadURL 每次操作都重新申请地址, 不缓存
func DownloadURL(ctx context.Context, signer URLSigner, attachment model.Attachment) (string, error) {
	if attachment.Path == "" {
		return "", &StorageError{Err: fmt.Errorf("attachment %q has no storage path", attachment.Name)}
	}
	url, err := signer.CreateSignedDownloadURL(ctx, attachment.Path, DownloadURLTTL)
	if err != nil {
		return "", &StorageError{Path: attachment.Path, Err: err}
	}
	return url, nil
}

// FormatFileSize 1024 以下显示字节, 其余保留一位小数
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}

type FileCategory string

const (
	CategoryImage        FileCategory = "image"
	CategoryPDF          FileCategory = "pdf"
	CategorySpreadsheet  FileCategory = "spreadsheet"
	CategoryPresentation FileCategory = "presentation"
	CategoryGeneric      FileCategory = "generic"
)

// ClassifyMIME 根据MIME类型选择图标分类
func ClassifyMIME(mimeType string) FileCategory {
	t := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch {
	case strings.HasPrefix(t, "image/"):
		return CategoryImage
	case t == "application/pdf":
		return CategoryPDF
	case strings.Contains(t, "spreadsheet"), strings.Contains(t, "excel"), t == "text/csv":
		return CategorySpreadsheet
	case strings.Contains(t, "presentation"), strings.Contains(t, "powerpoint"):
		return CategoryPresentation
	default:
		return CategoryGeneric
	}
}
