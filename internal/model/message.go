package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	LeadID    uint      `gorm:"not null;index:idx_lead_created,priority:1" json:"lead_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Edited    bool      `gorm:"not null;default:false" json:"edited"`
	CreatedAt time.Time `gorm:"index:idx_lead_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author      *DirectoryEntry `gorm:"-" json:"author,omitempty"`
	AuthorUser  User            `gorm:"foreignKey:AuthorID" json:"-"`
	Attachments []Attachment    `gorm:"foreignKey:MessageID" json:"attachments"`
	Mentions    []Mention       `gorm:"foreignKey:MessageID" json:"mentions"`
}

// 由服务端分配不透明的字符串ID
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// 从预加载的作者生成对外的作者信息
func (m *Message) AfterFind(tx *gorm.DB) error {
	if m.AuthorUser.ID != 0 {
		entry := m.AuthorUser.DirectoryEntry()
		m.Author = &entry
	}
	return nil
}
