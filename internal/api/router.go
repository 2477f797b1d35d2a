package api

import (
	"net/http"

	"lead-chat/internal/interfaces"
	"lead-chat/internal/metrics"
	"lead-chat/internal/middleware"
	"lead-chat/internal/repository"
	"lead-chat/internal/service"
	"lead-chat/internal/storage"
	internalws "lead-chat/internal/websocket"

	"github.com/gin-gonic/gin"
)

// RouterDeps 组装路由所需的服务
type RouterDeps struct {
	UserRepo          *repository.UserRepository
	AuthService       *service.AuthService
	LeadService       *service.LeadService
	ChatService       *service.ChatService
	AttachmentService *service.AttachmentService
	Hub               interfaces.ConnectionManager
	LocalStore        *storage.LocalStore
	SendLimiter       *middleware.UserRateLimiter
	ClientOptions     internalws.ClientOptions
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.GinZapLogger(), gin.Recovery())

	authHandler := NewAuthHandler(deps.AuthService)
	leadHandler := NewLeadHandler(deps.LeadService)
	chatHandler := NewChatHandler(deps.ChatService)
	attachmentHandler := NewAttachmentHandler(deps.AttachmentService, deps.LocalStore)
	wsHandler := NewWSHandler(deps.Hub, deps.LeadService, deps.ClientOptions)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 签名即授权, 不需要登录
	router.GET(storage.FilesRoute+"*path", attachmentHandler.ServeFile)

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	authorized := router.Group("/api")
	authorized.Use(middleware.AuthMiddleware(deps.UserRepo))
	{
		authorized.GET("/auth/me", authHandler.Me)

		authorized.GET("/leads", leadHandler.ListLeads)
		authorized.POST("/leads", leadHandler.CreateLead)
		authorized.GET("/leads/:lead_id", leadHandler.GetLead)

		authorized.GET("/leads/:lead_id/messages", chatHandler.ListMessages)
		send := []gin.HandlerFunc{chatHandler.SendMessage}
		if deps.SendLimiter != nil {
			send = append([]gin.HandlerFunc{deps.SendLimiter.Middleware()}, send...)
		}
		authorized.POST("/leads/:lead_id/messages", send...)
		authorized.PATCH("/messages/:message_id", chatHandler.EditMessage)
		authorized.DELETE("/messages/:message_id", chatHandler.DeleteMessage)
		authorized.POST("/messages/:message_id/mentions", chatHandler.CreateMentions)

		authorized.GET("/users/mentionable", chatHandler.ListMentionable)
		authorized.GET("/mentions/unread", chatHandler.UnreadMentions)
		authorized.POST("/mentions/:mention_id/read", chatHandler.MarkMentionRead)

		authorized.GET("/leads/:lead_id/ws", wsHandler.HandleConnection)
		authorized.POST("/leads/:lead_id/attachments", attachmentHandler.Upload)
		authorized.GET("/attachments/url", attachmentHandler.SignedURL)
	}

	return router
}
