// Package leadchat 线索聊天面板的客户端实现: 消息存储, 滚动状态, 附件引用和订阅生命周期。
package leadchat

import (
	"context"
	"io"
	"time"

	"lead-chat/internal/model"
)

// DataLayer 后端数据访问层, 作者身份由会话决定
type DataLayer interface {
	FetchMessages(ctx context.Context, leadID uint) ([]model.Message, error)
	CreateMessage(ctx context.Context, leadID uint, body string, attachments []model.Attachment) (*model.Message, error)
	UpdateMessage(ctx context.Context, messageID, body string) (*model.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	CreateMentions(ctx context.Context, messageID string, userIDs []uint) error
	FetchMentionableUsers(ctx context.Context) ([]model.DirectoryEntry, error)
	// Subscribe 在订阅确认之后才返回
	Subscribe(ctx context.Context, leadID uint) (Subscription, error)
	CreateSignedDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	UploadAttachment(ctx context.Context, leadID uint, name string, content io.Reader) (*model.Attachment, error)
}

type EventKind int

const (
	EventInserted EventKind = iota + 1
	EventUpdated
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventInserted:
		return "inserted"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event 线索频道上的一条推送事件, Deleted 只携带 MessageID
type Event struct {
	Kind      EventKind
	Message   *model.Message
	MessageID string
}

// Subscription 一个线索频道的订阅
type Subscription interface {
	LeadID() uint
	// Events 在订阅结束时关闭
	Events() <-chan Event
	// Done 在连接断开或 Unsubscribe 之后关闭
	Done() <-chan struct{}
	Unsubscribe()
}
