package service

import (
	"fmt"
	"strings"
	"time"

	"lead-chat/internal/model"
	"lead-chat/internal/repository"
	"lead-chat/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

const defaultAvatar = "default-avatar.png"

// 账户注册、登录与资料查询
type AuthService struct {
	userRepo *repository.UserRepository
}

func NewAuthService(userRepo *repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Mentionable 为空时默认可被提及
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Name        string `json:"name" binding:"required,max=100"`
	Password    string `json:"password" binding:"required,min=6"`
	Email       string `json:"email" binding:"required,email"`
	Mentionable *bool  `json:"mentionable"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// 登录成功后返回给客户端的会话信息
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

func (r RegisterRequest) normalized() (RegisterRequest, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return r, ErrInvalidDisplayName
	}
	return r, nil
}

// 注册新用户; 用户名与邮箱必须唯一
func (s *AuthService) Register(req RegisterRequest) (*model.User, error) {
	req, err := req.normalized()
	if err != nil {
		return nil, err
	}

	taken, err := s.userRepo.FindByUsername(req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken != nil {
		return nil, ErrUsernameTaken
	}
	if taken, err = s.userRepo.FindByEmail(req.Email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	mentionable := true
	if req.Mentionable != nil {
		mentionable = *req.Mentionable
	}
	user := &model.User{
		Username:    req.Username,
		Name:        req.Name,
		Password:    string(hash),
		Email:       req.Email,
		Avatar:      defaultAvatar,
		Mentionable: mentionable,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// 校验密码并签发令牌
func (s *AuthService) Login(req LoginRequest) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := utils.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) Profile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
