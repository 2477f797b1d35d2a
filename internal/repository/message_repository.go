package repository

import (
	"time"

	"lead-chat/internal/model"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// 保存新消息, 附件关联在同一事务内写入
func (r *MessageRepository) CreateWithAttachments(message *model.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(message).Error
	})
}

func (r *MessageRepository) preloaded() *gorm.DB {
	return r.db.
		Preload("AuthorUser").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Mentions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// 获取线索的全部消息, 按创建时间升序
func (r *MessageRepository) FindByLead(leadID uint) ([]model.Message, error) {
	var messages []model.Message
	err := r.preloaded().
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) FindByID(id string) (*model.Message, error) {
	return first[model.Message](r.preloaded().Where("id = ?", id))
}

// 更新正文并标记为已编辑
func (r *MessageRepository) UpdateBody(id, body string) error {
	return r.db.Model(&model.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
		"body":       body,
		"edited":     true,
		"updated_at": time.Now(),
	}).Error
}

// 删除消息及其提及和附件记录, 不保留墓碑
func (r *MessageRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&model.Mention{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&model.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Message{}).Error
	})
}
