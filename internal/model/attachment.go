package model

import "time"

// Attachment 附件元数据, Path 为不透明的存储键, 只能通过签名URL访问
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	MessageID string    `gorm:"type:char(36);not null;index" json:"-"`
	LeadID    uint      `gorm:"not null;index" json:"-"`
	Path      string    `gorm:"type:varchar(512);not null;uniqueIndex" json:"path"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Size      int64     `gorm:"not null" json:"size"`
	Type      string    `gorm:"type:varchar(100)" json:"type"`
	CreatedAt time.Time `json:"-"`
}
