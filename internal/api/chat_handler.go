package api

import (
	"net/http"

	"lead-chat/internal/service"

	"github.com/gin-gonic/gin"
)

// 处理聊天相关的HTTP请求
type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// 线索的消息列表, 按创建时间升序
func (h *ChatHandler) ListMessages(c *gin.Context) {
	leadID, ok := getLeadIDFromParam(c)
	if !ok {
		return
	}
	messages, err := h.chatService.ListMessages(leadID)
	if err != nil {
		respondError(c, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// 发送消息
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	leadID, ok := getLeadIDFromParam(c)
	if !ok {
		return
	}

	var req service.SendMessageRequest
	if !bindJSON(c, "send", &req) {
		return
	}

	message, err := h.chatService.SendMessage(userID, leadID, req)
	if err != nil {
		respondError(c, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandler) EditMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.EditMessageRequest
	if !bindJSON(c, "edit", &req) {
		return
	}

	message, err := h.chatService.EditMessage(userID, c.Param("message_id"), req)
	if err != nil {
		respondError(c, "edit message", err)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.chatService.DeleteMessage(userID, c.Param("message_id")); err != nil {
		respondError(c, "delete message", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) CreateMentions(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.CreateMentionsRequest
	if !bindJSON(c, "mentions", &req) {
		return
	}
	if err := h.chatService.CreateMentions(userID, c.Param("message_id"), req); err != nil {
		respondError(c, "create mentions", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// 可被@提及的用户目录
func (h *ChatHandler) ListMentionable(c *gin.Context) {
	users, err := h.chatService.ListMentionable()
	if err != nil {
		respondError(c, "list mentionable", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *ChatHandler) UnreadMentions(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	mentions, err := h.chatService.UnreadMentions(userID)
	if err != nil {
		respondError(c, "unread mentions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentions": mentions})
}

func (h *ChatHandler) MarkMentionRead(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	mentionID, ok := getUintParam(c, "mention_id")
	if !ok {
		return
	}
	if err := h.chatService.MarkMentionRead(userID, mentionID); err != nil {
		respondError(c, "mark mention read", err)
		return
	}
	c.Status(http.StatusNoContent)
}
