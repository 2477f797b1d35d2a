package repository

import (
	"lead-chat/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MentionRepository struct {
	db *gorm.DB
}

func NewMentionRepository(db *gorm.DB) *MentionRepository {
	return &MentionRepository{db: db}
}

// 批量创建提及记录, 已存在的 (message_id, user_id) 被忽略
func (r *MentionRepository) CreateMany(messageID string, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	mentions := make([]model.Mention, 0, len(userIDs))
	for _, uid := range userIDs {
		mentions = append(mentions, model.Mention{MessageID: messageID, UserID: uid})
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&mentions).Error
}

// 用户未读的提及
func (r *MentionRepository) FindUnreadForUser(userID uint) ([]model.Mention, error) {
	var mentions []model.Mention
	err := r.db.Where(map[string]interface{}{"user_id": userID, "read": false}).
		Order("created_at DESC").
		Order("id DESC").
		Find(&mentions).Error
	return mentions, err
}

func (r *MentionRepository) FindByID(id uint) (*model.Mention, error) {
	return first[model.Mention](r.db, id)
}

// 标记为已读, 仅限被提及的用户本人
func (r *MentionRepository) MarkRead(id, userID uint) (bool, error) {
	res := r.db.Model(&model.Mention{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	return res.RowsAffected > 0, res.Error
}
