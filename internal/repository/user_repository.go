package repository

import (
	"lead-chat/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户账号和可提及目录
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// 登录时按用户名查找
func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	return first[model.User](r.db.Where("username = ?", username))
}

// 注册时检查邮箱是否已被占用
func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	return first[model.User](r.db.Where("email = ?", email))
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	return first[model.User](r.db, id)
}

func (r *UserRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// 可被@提及的用户目录, 按显示名排序, 同名时按ID
func (r *UserRepository) FindMentionable() ([]model.User, error) {
	var users []model.User
	err := r.db.Where("mentionable = ?", true).
		Order("name ASC").
		Order("id ASC").
		Find(&users).Error
	return users, err
}
