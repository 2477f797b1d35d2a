package repository

import (
	"lead-chat/internal/model"

	"gorm.io/gorm"
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(lead *model.Lead) error {
	return r.db.Create(lead).Error
}

// 根据ID查找线索
func (r *LeadRepository) FindByID(leadID uint) (*model.Lead, error) {
	return first[model.Lead](r.db, leadID)
}

func (r *LeadRepository) Exists(leadID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Lead{}).Where("id = ?", leadID).Count(&count).Error
	return count > 0, err
}

// 按创建时间倒序分页列出线索
func (r *LeadRepository) List(limit, offset int) ([]model.Lead, error) {
	var leads []model.Lead
	err := r.db.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&leads).Error
	return leads, err
}
