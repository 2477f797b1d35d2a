package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"lead-chat/internal/interfaces"
	"lead-chat/internal/metrics"
	"lead-chat/internal/model"
	"lead-chat/internal/repository"
	"lead-chat/internal/storage"
	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

type ChatService struct {
	publisher   interfaces.EventPublisher
	messageRepo *repository.MessageRepository
	mentionRepo *repository.MentionRepository
	userRepo    *repository.UserRepository
	leadRepo    *repository.LeadRepository

	maxBodyLength int
}

func NewChatService(
	publisher interfaces.EventPublisher,
	messageRepo *repository.MessageRepository,
	mentionRepo *repository.MentionRepository,
	userRepo *repository.UserRepository,
	leadRepo *repository.LeadRepository,
	maxBodyLength int,
) *ChatService {
	return &ChatService{
		publisher:     publisher,
		messageRepo:   messageRepo,
		mentionRepo:   mentionRepo,
		userRepo:      userRepo,
		leadRepo:      leadRepo,
		maxBodyLength: maxBodyLength,
	}
}

// 附件元数据, 由上传接口返回并随消息一起提交
type AttachmentMeta struct {
	Path string `json:"path" binding:"required"`
	Name string `json:"name" binding:"required"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type SendMessageRequest struct {
	Body        string           `json:"body"`
	Attachments []AttachmentMeta `json:"attachments"`
}

type EditMessageRequest struct {
	Body string `json:"body"`
}

type CreateMentionsRequest struct {
	UserIDs []uint `json:"user_ids"`
}

func (s *ChatService) normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyBody
	}
	if s.maxBodyLength > 0 && utf8.RuneCountInString(body) > s.maxBodyLength {
		return "", ErrBodyTooLong
	}
	return body, nil
}

func (s *ChatService) requireLead(leadID uint) error {
	exists, err := s.leadRepo.Exists(leadID)
	if err != nil {
		return fmt.Errorf("failed to check lead: %w", err)
	}
	if !exists {
		return ErrLeadNotFound
	}
	return nil
}

// 推送失败只记录日志, 写入已经成功, 客户端通过重新加载恢复
func (s *ChatService) publish(event *model.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		logger.L.Error("Failed to publish change event",
			zap.String("type", event.Type),
			zap.Uint("leadID", event.LeadID),
			zap.Error(err))
	}
}

// 线索的全部消息, 按创建时间升序
func (s *ChatService) ListMessages(leadID uint) ([]model.Message, error) {
	if err := s.requireLead(leadID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.FindByLead(leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *ChatService) SendMessage(authorID, leadID uint, req SendMessageRequest) (*model.Message, error) {
	body, err := s.normalizeBody(req.Body)
	if err != nil {
		return nil, err
	}
	if err := s.requireLead(leadID); err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("leads/%d/", leadID)
	attachments := make([]model.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		if storage.ValidateKey(a.Path) != nil || !strings.HasPrefix(a.Path, prefix) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAttachment, a.Path)
		}
		attachments = append(attachments, model.Attachment{
			LeadID: leadID,
			Path:   a.Path,
			Name:   a.Name,
			Size:   a.Size,
			Type:   a.Type,
		})
	}

	message := &model.Message{
		LeadID:      leadID,
		AuthorID:    authorID,
		Body:        body,
		Attachments: attachments,
	}
	if err := s.messageRepo.CreateWithAttachments(message); err != nil {
		logger.L.Error("Error saving message to DB", zap.Uint("authorID", authorID), zap.Uint("leadID", leadID), zap.Error(err))
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	metrics.MessagesSent.Inc()

	saved, err := s.messageRepo.FindByID(message.ID)
	if err != nil || saved == nil {
		logger.L.Warn("Failed to reload saved message", zap.String("messageID", message.ID), zap.Error(err))
		saved = message
	}
	logger.L.Debug("Message saved to DB", zap.String("messageID", saved.ID), zap.Uint("leadID", leadID))

	s.publish(&model.ChangeEvent{Type: model.EventInsert, LeadID: leadID, Message: saved})
	return saved, nil
}

// 查找消息并校验作者
func (s *ChatService) authoredMessage(userID uint, messageID string) (*model.Message, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}
	if message.AuthorID != userID {
		return nil, ErrNotAuthor
	}
	return message, nil
}

func (s *ChatService) EditMessage(userID uint, messageID string, req EditMessageRequest) (*model.Message, error) {
	body, err := s.normalizeBody(req.Body)
	if err != nil {
		return nil, err
	}
	message, err := s.authoredMessage(userID, messageID)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepo.UpdateBody(messageID, body); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	updated, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload message: %w", err)
	}
	if updated == nil {
		return nil, ErrMessageNotFound
	}

	s.publish(&model.ChangeEvent{Type: model.EventUpdate, LeadID: message.LeadID, Message: updated})
	return updated, nil
}

func (s *ChatService) DeleteMessage(userID uint, messageID string) error {
	message, err := s.authoredMessage(userID, messageID)
	if err != nil {
		return err
	}
	if err := s.messageRepo.Delete(messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	s.publish(&model.ChangeEvent{Type: model.EventDelete, LeadID: message.LeadID, MessageID: messageID})
	return nil
}

// 为消息创建提及记录, 目标必须在可提及目录中
func (s *ChatService) CreateMentions(userID uint, messageID string, req CreateMentionsRequest) error {
	if _, err := s.authoredMessage(userID, messageID); err != nil {
		return err
	}
	if len(req.UserIDs) == 0 {
		return nil
	}

	directory, err := s.userRepo.FindMentionable()
	if err != nil {
		return fmt.Errorf("failed to load mentionable users: %w", err)
	}
	known := make(map[uint]struct{}, len(directory))
	for _, u := range directory {
		known[u.ID] = struct{}{}
	}
	for _, id := range req.UserIDs {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownMentionTarget, id)
		}
	}

	if err := s.mentionRepo.CreateMany(messageID, req.UserIDs); err != nil {
		return fmt.Errorf("failed to create mentions: %w", err)
	}
	return nil
}

func (s *ChatService) ListMentionable() ([]model.DirectoryEntry, error) {
	users, err := s.userRepo.FindMentionable()
	if err != nil {
		return nil, fmt.Errorf("failed to load mentionable users: %w", err)
	}
	entries := make([]model.DirectoryEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, u.DirectoryEntry())
	}
	return entries, nil
}

func (s *ChatService) UnreadMentions(userID uint) ([]model.Mention, error) {
	mentions, err := s.mentionRepo.FindUnreadForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions: %w", err)
	}
	return mentions, nil
}

// 标记提及为已读, 其他用户的提及视为不存在
func (s *ChatService) MarkMentionRead(userID, mentionID uint) error {
	mention, err := s.mentionRepo.FindByID(mentionID)
	if err != nil {
		return fmt.Errorf("failed to find mention: %w", err)
	}
	if mention == nil || mention.UserID != userID {
		return ErrMentionNotFound
	}
	if mention.Read {
		return nil
	}
	if _, err := s.mentionRepo.MarkRead(mentionID, userID); err != nil {
		return fmt.Errorf("failed to mark mention read: %w", err)
	}
	return nil
}
