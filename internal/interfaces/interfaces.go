package interfaces

import "lead-chat/internal/model"

// 订阅某个线索频道的实时客户端
type Client interface {
	GetLeadID() uint
	GetUserID() uint
	QueueBytes(data []byte) error
	Close()
}

// 定义了发布变更事件的接口
// service.ChatService 依赖此接口
type EventPublisher interface {
	Publish(event *model.ChangeEvent) error
}

type ConnectionManager interface {
	EventPublisher
	Register(client Client)
	Unregister(client Client)
	SubscriberCount(leadID uint) int
}
