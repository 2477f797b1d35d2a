// Package session 保存当前登录用户的令牌, 消息作者身份来自这里而不是客户端参数。
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lead-chat/internal/model"
	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrNoSession = errors.New("not logged in")
	// ErrSessionExpired 同时满足 errors.Is(err, ErrNoSession)
	ErrSessionExpired = fmt.Errorf("%w: session expired, please log in again", ErrNoSession)
)

type Session struct {
	Token     string     `json:"token"`
	User      model.User `json:"user"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired 没有过期时间的令牌视为长期有效
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Authenticator 用用户名密码换取会话
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*Session, error)
}

// Store 会话的持久化位置
type Store interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

type Manager struct {
	auth  Authenticator
	store Store
	now   func() time.Time

	mu      sync.RWMutex
	current *Session
}

// NewManager store 为 nil 时会话只保存在内存中
func NewManager(auth Authenticator, store Store) *Manager {
	return &Manager{auth: auth, store: store, now: time.Now}
}

// Restore 从存储中恢复上次的会话, 已过期的会话被丢弃
func (m *Manager) Restore() error {
	if m.store == nil {
		return nil
	}
	s, err := m.store.Load()
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	if s.Expired(m.now()) {
		logger.L.Info("Discarding expired session", zap.Uint("userID", s.User.ID))
		return m.store.Clear()
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	if m.auth == nil {
		return nil, errors.New("no authenticator configured")
	}
	s, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := m.Set(s); err != nil {
		return nil, err
	}
	logger.L.Info("Logged in", zap.Uint("userID", s.User.ID), zap.String("username", s.User.Username))
	return s, nil
}

// Set 替换当前会话并持久化
func (m *Manager) Set(s *Session) error {
	if s == nil || s.Token == "" {
		return ErrNoSession
	}
	if m.store != nil {
		if err := m.store.Save(s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

func (m *Manager) Logout() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if m.store != nil {
		return m.store.Clear()
	}
	return nil
}

// Current 返回当前有效会话
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	s := m.current
	m.mu.RUnlock()

	if s == nil {
		return nil, ErrNoSession
	}
	if s.Expired(m.now()) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Token 供数据层为每个请求附加 Bearer 令牌
func (m *Manager) Token() (string, error) {
	s, err := m.Current()
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// UserID 当前用户, 用作新消息的作者
func (m *Manager) UserID() (uint, error) {
	s, err := m.Current()
	if err != nil {
		return 0, err
	}
	return s.User.ID, nil
}
