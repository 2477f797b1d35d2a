package repository

import (
	"lead-chat/internal/model"

	"gorm.io/gorm"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// 通过存储路径查找附件
func (r *AttachmentRepository) FindByPath(path string) (*model.Attachment, error) {
	return first[model.Attachment](r.db.Where("path = ?", path))
}
