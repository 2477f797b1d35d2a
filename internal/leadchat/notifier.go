package leadchat

import (
	"sync"
	"time"

	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityDestructive
)

// Notification 一条临时的, 可关闭的用户提示
type Notification struct {
	ID       uint64
	Severity Severity
	Title    string
	Err      error
	At       time.Time
}

type Notifier interface {
	Notify(n Notification) uint64
}

// Inbox 保存待显示的提示并记录日志
type Inbox struct {
	mu      sync.Mutex
	nextID  uint64
	pending []Notification
	now     func() time.Time
}

func NewInbox() *Inbox {
	return &Inbox{now: time.Now}
}

func (b *Inbox) Notify(n Notification) uint64 {
	b.mu.Lock()
	b.nextID++
	n.ID = b.nextID
	if n.At.IsZero() {
		n.At = b.now()
	}
	b.pending = append(b.pending, n)
	b.mu.Unlock()

	fields := []zap.Field{zap.Uint64("notificationID", n.ID), zap.String("title", n.Title)}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}
	if n.Severity == SeverityDestructive {
		logger.L.Warn("Chat notification", fields...)
	} else {
		logger.L.Info("Chat notification", fields...)
	}
	return n.ID
}

// Dismiss 关闭一条提示
func (b *Inbox) Dismiss(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.pending {
		if n.ID == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Inbox) Pending() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notification(nil), b.pending...)
}
