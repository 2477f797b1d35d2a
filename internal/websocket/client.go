package websocket

import (
	"errors"
	"sync"
	"time"

	"lead-chat/internal/interfaces"
	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrClientClosed   = errors.New("client is closed")
	ErrSendBufferFull = errors.New("client send buffer is full")
)

// 连接参数, 由配置生成
type ClientOptions struct {
	WriteWait      time.Duration // 写超时
	PongWait       time.Duration // 等待pong的最大时间
	PingPeriod     time.Duration // 发送ping的周期
	MaxMessageSize int64         // 消息最大长度
	BufferSize     int
}

// 从配置读取连接参数, 非法值使用默认值
func OptionsFromConfig(cfg config.WebSocketConfig) ClientOptions {
	opts := ClientOptions{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 4096,
		BufferSize:     256,
	}
	if cfg.WriteWaitSeconds > 0 {
		opts.WriteWait = time.Duration(cfg.WriteWaitSeconds) * time.Second
	}
	if cfg.PongWaitSeconds > 0 {
		opts.PongWait = time.Duration(cfg.PongWaitSeconds) * time.Second
	}
	if cfg.MaxMessageSize > 0 {
		opts.MaxMessageSize = int64(cfg.MaxMessageSize)
	}
	if cfg.ClientBufferSize > 0 {
		opts.BufferSize = cfg.ClientBufferSize
	}
	opts.PingPeriod = (opts.PongWait * 9) / 10
	return opts
}

type Client struct {
	LeadID uint
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte

	mu      sync.Mutex // 保护 Conn 写入
	closeMu sync.Mutex
	closed  bool

	opts    ClientOptions
	manager interfaces.ConnectionManager
}

func NewClient(leadID, userID uint, conn *websocket.Conn, manager interfaces.ConnectionManager, opts ClientOptions) *Client {
	return &Client{
		LeadID:  leadID,
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan []byte, opts.BufferSize),
		opts:    opts,
		manager: manager,
	}
}

func (c *Client) GetLeadID() uint { return c.LeadID }

func (c *Client) GetUserID() uint { return c.UserID }

// QueueBytes 非阻塞地放入发送队列
func (c *Client) QueueBytes(data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close 关闭发送通道, 可重复调用
func (c *Client) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ReadPump 只负责维持读超时和处理控制帧, 客户端发来的数据帧被忽略
func (c *Client) ReadPump() {
	defer func() {
		c.manager.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.opts.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.L.Warn("Unexpected websocket close", zap.Uint("userID", c.UserID), zap.Uint("leadID", c.LeadID), zap.Error(err))
			} else {
				logger.L.Debug("Websocket read loop finished", zap.Uint("userID", c.UserID), zap.Uint("leadID", c.LeadID), zap.Error(err))
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.mu.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				// Send 通道已关闭
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}

			err := c.Conn.WriteMessage(websocket.TextMessage, data)
			if err != nil {
				c.mu.Unlock()
				logger.L.Warn("Failed to write websocket frame", zap.Uint("userID", c.UserID), zap.Error(err))
				return
			}

			// 批量写出已排队的帧
			n := len(c.Send)
			for range n {
				batch, ok := <-c.Send
				if !ok {
					break
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, batch); err != nil {
					c.mu.Unlock()
					logger.L.Warn("Failed to write batched websocket frame", zap.Uint("userID", c.UserID), zap.Error(err))
					return
				}
			}
			c.mu.Unlock()

		case <-ticker.C:
			c.mu.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				logger.L.Debug("Failed to send ping", zap.Uint("userID", c.UserID), zap.Error(err))
				return
			}
		}
	}
}
