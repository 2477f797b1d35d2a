package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

// FilesRoute 本地存储签名下载地址的路由前缀
const FilesRoute = "/api/files/"

// LocalStore 将附件保存在本地磁盘, 通过HMAC签名的能力URL提供下载
type LocalStore struct {
	basePath string
	baseURL  string
	secret   []byte
	now      func() time.Time
}

// NewLocalStore 创建本地文件存储
func NewLocalStore(cfg config.LocalStorageConfig) (*LocalStore, error) {
	if cfg.SigningSecret == "" {
		return nil, errors.New("local storage requires a signing secret")
	}
	// 确保目录存在
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStore{
		basePath: cfg.Path,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		secret:   []byte(cfg.SigningSecret),
		now:      time.Now,
	}, nil
}

func (s *LocalStore) fullPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

// Put 保存上传的文件
func (s *LocalStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	filePath, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create lead storage directory: %w", err)
	}

	// 创建目标文件
	dst, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(dst, body)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filePath)
		return fmt.Errorf("failed to save file: %w", err)
	}

	logger.L.Info("File stored successfully",
		zap.String("key", key),
		zap.String("contentType", contentType),
		zap.Int64("size", written))
	return nil
}

func (s *LocalStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL 生成 <base>/api/files/<key>?expires=&sig= 形式的限时下载地址
func (s *LocalStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	filePath, err := s.fullPath(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get file info: %w", err)
	}

	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(key, expires))

	return s.baseURL + FilesRoute + escapeKey(key) + "?" + q.Encode(), nil
}

// 逐段转义, 保留分隔符
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// Open 校验签名后返回文件路径
func (s *LocalStore) Open(key, expiresParam, sig string) (string, error) {
	filePath, err := s.fullPath(key)
	if err != nil {
		return "", err
	}
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return "", ErrInvalidSignature
	}
	if s.now().Unix() > expires {
		return "", ErrInvalidSignature
	}
	if !hmac.Equal([]byte(s.sign(key, expires)), []byte(sig)) {
		return "", ErrInvalidSignature
	}
	if _, err := os.Stat(filePath); err != nil {
		return "", ErrNotFound
	}
	return filePath, nil
}
