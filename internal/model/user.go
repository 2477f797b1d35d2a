package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	Name        string         `gorm:"type:varchar(100);not null" json:"name"` // 显示名, 用于@提及匹配
	Email       string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"email"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"`
	Avatar      string         `gorm:"type:varchar(255)" json:"avatar"`
	Mentionable bool           `gorm:"not null;default:true" json:"mentionable"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// DirectoryEntry 可被@提及的用户目录条目
type DirectoryEntry struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) DirectoryEntry() DirectoryEntry {
	return DirectoryEntry{ID: u.ID, Name: u.Name, Email: u.Email}
}
