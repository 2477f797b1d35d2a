package model

// 推送事件类型
const (
	EventInsert     = "INSERT"
	EventUpdate     = "UPDATE"
	EventDelete     = "DELETE"
	EventSubscribed = "SUBSCRIBED"
)

// ChangeEvent 线索频道上的行级变更通知
type ChangeEvent struct {
	Type      string   `json:"type"`
	LeadID    uint     `json:"lead_id"`
	Message   *Message `json:"message,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
}
