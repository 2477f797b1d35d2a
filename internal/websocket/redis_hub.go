package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lead-chat/internal/interfaces"
	"lead-chat/internal/metrics"
	"lead-chat/internal/model"
	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisHub 使用 Redis 发布订阅分发线索变更事件
type RedisHub struct {
	rooms   map[uint]map[interfaces.Client]struct{}
	roomsMu sync.RWMutex

	rdb    *redis.Client
	prefix string
	policy retryPolicy

	ctx        context.Context
	cancelFunc context.CancelFunc
}

func NewRedisHub(cfg config.RedisConfig) (*RedisHub, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisHub(rdb, cfg.ChannelPrefix), nil
}

func newRedisHub(rdb *redis.Client, prefix string) *RedisHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisHub{
		rooms:      make(map[uint]map[interfaces.Client]struct{}),
		rdb:        rdb,
		prefix:     prefix,
		policy:     retryPolicyFromConfig(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

func (h *RedisHub) channel(leadID uint) string {
	return fmt.Sprintf("%s:lead:%d", h.prefix, leadID)
}

func (h *RedisHub) Register(client interfaces.Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	addToRoom(h.rooms, client)
}

func (h *RedisHub) Unregister(client interfaces.Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	removeFromRoom(h.rooms, client)
}

func (h *RedisHub) SubscriberCount(leadID uint) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[leadID])
}

func (h *RedisHub) Publish(event *model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := h.rdb.Publish(h.ctx, h.channel(event.LeadID), data).Err(); err != nil {
		logger.L.Error("Failed to publish change event to redis", zap.Uint("leadID", event.LeadID), zap.Error(err))
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	metrics.EventsPublished.WithLabelValues(event.Type).Inc()
	return nil
}

// StartSubscriber 订阅所有线索频道
func (h *RedisHub) StartSubscriber() {
	pubsub := h.rdb.PSubscribe(h.ctx, h.prefix+":lead:*")
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-h.ctx.Done():
				logger.L.Info("Stopping redis subscriber")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.dispatch([]byte(msg.Payload))
			}
		}
	}()
}

func (h *RedisHub) dispatch(data []byte) {
	var event model.ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.L.Error("Failed to unmarshal change event", zap.Error(err))
		return
	}

	h.roomsMu.RLock()
	targets := roomMembers(h.rooms, event.LeadID)
	h.roomsMu.RUnlock()

	for _, client := range targets {
		if !queueWithRetry(client, data, h.policy) {
			h.Unregister(client)
		}
	}
}

func (h *RedisHub) Close() error {
	h.cancelFunc()
	return h.rdb.Close()
}
