package websocket

import (
	"errors"
	"fmt"

	"lead-chat/internal/interfaces"
	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

var ErrUnsupportedProvider = errors.New("unsupported messaging provider")

// CreateHub 根据配置创建相应的Hub实现
func CreateHub(cfg config.MessagingConfig) (interfaces.ConnectionManager, error) {
	logger.L.Info("Creating hub with messaging provider", zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case "channel":
		return NewHub(), nil
	case "kafka":
		return NewKafkaHub(cfg.Kafka)
	case "redis":
		return NewRedisHub(cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// 启动Hub
func StartHub(hub interfaces.ConnectionManager) error {
	switch h := hub.(type) {
	case *Hub:
		go h.Run()
	case *KafkaHub:
		h.StartConsumer()
	case *RedisHub:
		h.StartSubscriber()
	default:
		return errors.New("unknown hub type")
	}
	return nil
}

// 停止Hub并释放连接
func StopHub(hub interfaces.ConnectionManager) {
	switch h := hub.(type) {
	case *Hub:
		h.Stop()
	case *KafkaHub:
		h.Close()
	case *RedisHub:
		h.Close()
	}
}
