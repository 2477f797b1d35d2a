package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"lead-chat/internal/interfaces"
	"lead-chat/internal/metrics"
	"lead-chat/internal/model"
	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

var ErrBroadcastFull = errors.New("hub broadcast channel is full")

// 单进程内的线索频道Hub, 每个线索一个房间
type Hub struct {
	rooms   map[uint]map[interfaces.Client]struct{}
	roomsMu sync.RWMutex

	broadcast  chan *model.ChangeEvent
	register   chan interfaces.Client
	unregister chan interfaces.Client
	stop       chan struct{}

	retryCount    int
	retryInterval time.Duration
}

type retryPolicy struct {
	count    int
	interval time.Duration
}

func retryPolicyFromConfig() retryPolicy {
	wsConfig := config.GlobalConfig.WebSocket

	p := retryPolicy{count: wsConfig.MessageRetryCount, interval: time.Duration(wsConfig.MessageRetryIntervalMs) * time.Millisecond}
	if p.count <= 0 {
		p.count = 3
		logger.L.Debug("Invalid retryCount, using default", zap.Int("default", p.count))
	}
	if p.interval <= 0 {
		p.interval = 100 * time.Millisecond
		logger.L.Debug("Invalid retryInterval, using default", zap.Duration("default", p.interval))
	}
	return p
}

func NewHub() *Hub {
	policy := retryPolicyFromConfig()

	broadcastBufferSize := config.GlobalConfig.WebSocket.BroadcastBufferSize
	if broadcastBufferSize <= 0 {
		broadcastBufferSize = 256
		logger.L.Debug("Invalid BroadcastBufferSize, using default", zap.Int("default", broadcastBufferSize))
	}

	return &Hub{
		rooms:         make(map[uint]map[interfaces.Client]struct{}),
		broadcast:     make(chan *model.ChangeEvent, broadcastBufferSize),
		register:      make(chan interfaces.Client),
		unregister:    make(chan interfaces.Client),
		stop:          make(chan struct{}),
		retryCount:    policy.count,
		retryInterval: policy.interval,
	}
}

func (h *Hub) Register(client interfaces.Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		client.Close()
	}
}

func (h *Hub) Unregister(client interfaces.Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// Publish 将变更事件放入广播队列, 队列满时返回错误
func (h *Hub) Publish(event *model.ChangeEvent) error {
	select {
	case h.broadcast <- event:
		logger.L.Debug("Change event queued for broadcast", zap.String("type", event.Type), zap.Uint("leadID", event.LeadID))
		return nil
	default:
		logger.L.Warn("Hub broadcast channel full, dropping change event", zap.String("type", event.Type), zap.Uint("leadID", event.LeadID))
		return ErrBroadcastFull
	}
}

// 某个线索当前的订阅者数量
func (h *Hub) SubscriberCount(leadID uint) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[leadID])
}

// Stop 结束 Run 循环
func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			logger.L.Info("Hub stopped")
			return

		case client := <-h.register:
			h.roomsMu.Lock()
			addToRoom(h.rooms, client)
			h.roomsMu.Unlock()

		case client := <-h.unregister:
			h.roomsMu.Lock()
			removeFromRoom(h.rooms, client)
			h.roomsMu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				logger.L.Error("Failed to marshal change event", zap.Error(err))
				continue
			}
			metrics.EventsPublished.WithLabelValues(event.Type).Inc()

			h.roomsMu.RLock()
			targets := roomMembers(h.rooms, event.LeadID)
			h.roomsMu.RUnlock()

			policy := retryPolicy{count: h.retryCount, interval: h.retryInterval}
			for _, client := range targets {
				if !queueWithRetry(client, data, policy) {
					h.roomsMu.Lock()
					removeFromRoom(h.rooms, client)
					h.roomsMu.Unlock()
				}
			}
		}
	}
}

// 订阅确认帧, 在客户端加入房间之后立即排队
func subscribedFrame(leadID uint) []byte {
	data, _ := json.Marshal(&model.ChangeEvent{Type: model.EventSubscribed, LeadID: leadID})
	return data
}

// 加入房间并排队确认帧, 调用方持有写锁
func addToRoom(rooms map[uint]map[interfaces.Client]struct{}, client interfaces.Client) {
	leadID := client.GetLeadID()
	room, ok := rooms[leadID]
	if !ok {
		room = make(map[interfaces.Client]struct{})
		rooms[leadID] = room
	}
	if _, exists := room[client]; exists {
		return
	}
	room[client] = struct{}{}
	metrics.Subscribers.Inc()

	if err := client.QueueBytes(subscribedFrame(leadID)); err != nil {
		logger.L.Warn("Failed to queue subscribed frame", zap.Uint("userID", client.GetUserID()), zap.Error(err))
	}
	logger.L.Info("Client subscribed to lead", zap.Uint("userID", client.GetUserID()), zap.Uint("leadID", leadID))
}

// 调用方持有写锁
func removeFromRoom(rooms map[uint]map[interfaces.Client]struct{}, client interfaces.Client) {
	leadID := client.GetLeadID()
	room, ok := rooms[leadID]
	if !ok {
		return
	}
	if _, exists := room[client]; !exists {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(rooms, leadID)
	}
	client.Close()
	metrics.Subscribers.Dec()
	logger.L.Info("Client unsubscribed from lead", zap.Uint("userID", client.GetUserID()), zap.Uint("leadID", leadID))
}

// 调用方持有读锁
func roomMembers(rooms map[uint]map[interfaces.Client]struct{}, leadID uint) []interfaces.Client {
	room := rooms[leadID]
	targets := make([]interfaces.Client, 0, len(room))
	for client := range room {
		targets = append(targets, client)
	}
	return targets
}

// 发送缓冲区满时按策略重试, 全部失败返回 false
func queueWithRetry(client interfaces.Client, data []byte, policy retryPolicy) bool {
	err := client.QueueBytes(data)
	if err == nil {
		return true
	}
	if errors.Is(err, ErrClientClosed) {
		return false
	}
	for i := 0; i < policy.count; i++ {
		logger.L.Warn("Client send buffer full, retry attempt",
			zap.Uint("userID", client.GetUserID()),
			zap.Int("attempt", i+1))
		time.Sleep(policy.interval)
		if err = client.QueueBytes(data); err == nil {
			return true
		}
		if errors.Is(err, ErrClientClosed) {
			return false
		}
	}
	logger.L.Error("Client send buffer still full after retries, closing connection",
		zap.Uint("userID", client.GetUserID()),
		zap.Int("attempts", policy.count))
	return false
}

func leadKey(leadID uint) string {
	return fmt.Sprintf("%d", leadID)
}
