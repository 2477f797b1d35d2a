package api

import (
	"net/http"
	"time"

	"lead-chat/internal/interfaces"
	"lead-chat/internal/service"
	internalws "lead-chat/internal/websocket"
	"lead-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler 将连接订阅到一个线索的变更频道
type WSHandler struct {
	hub         interfaces.ConnectionManager
	leadService *service.LeadService
	opts        internalws.ClientOptions
	upgrader    websocket.Upgrader
}

func NewWSHandler(hub interfaces.ConnectionManager, leadService *service.LeadService, opts internalws.ClientOptions) *WSHandler {
	return &WSHandler{
		hub:         hub,
		leadService: leadService,
		opts:        opts,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: opts.WriteWait,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			// 鉴权依赖令牌而不是 Cookie
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// 订阅前确认线索存在, 注册后由 hub 发送 SUBSCRIBED 帧
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	leadID, ok := getLeadIDFromParam(c)
	if !ok {
		return
	}
	if _, err := h.leadService.Get(leadID); err != nil {
		respondError(c, "subscribe", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		logger.L.Warn("WebSocket upgrade failed", zap.Uint("userID", userID), zap.Uint("leadID", leadID), zap.Error(err))
		return
	}
	start := time.Now()
	logger.L.Info("Lead subscriber connected", zap.Uint("userID", userID), zap.Uint("leadID", leadID))

	client := internalws.NewClient(leadID, userID, conn, h.hub, h.opts)
	go client.WritePump()
	h.hub.Register(client)
	go func() {
		client.ReadPump()
		logger.L.Info("Lead subscriber disconnected",
			zap.Uint("userID", userID), zap.Uint("leadID", leadID), zap.Duration("connected", time.Since(start)))
	}()
}
