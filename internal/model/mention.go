package model

import "time"

// Mention 消息与被提及用户的关联, Read 仅对被提及用户有意义
type Mention struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID string    `gorm:"type:char(36);not null;uniqueIndex:idx_message_user" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_message_user;index" json:"user_id"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
