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

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KafkaHub 通过Kafka在多个服务实例之间分发线索变更事件
type KafkaHub struct {
	rooms      map[uint]map[interfaces.Client]struct{}
	roomsMu    sync.RWMutex
	producer   sarama.SyncProducer
	consumer   sarama.ConsumerGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	policy retryPolicy
	cfg    config.KafkaConfig
}

// 创建一个新的KafkaHub
func NewKafkaHub(cfg config.KafkaConfig) (*KafkaHub, error) {
	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3
	kConfig.Producer.Partitioner = sarama.NewHashPartitioner // 同一线索的事件保持顺序
	kConfig.Consumer.Return.Errors = true
	kConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	kConfig.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka producer", zap.Error(err))
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}

	// 每个实例使用独立的消费者组, 保证所有实例都能收到全部事件
	groupID := fmt.Sprintf("%s-%s", cfg.ConsumerGroup, uuid.NewString())
	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka consumer group", zap.Error(err))
		producer.Close()
		return nil, fmt.Errorf("failed to start Kafka consumer group: %w", err)
	}
	return newKafkaHub(cfg, producer, consumer), nil
}

// consumer 为 nil 时只发布不消费
func newKafkaHub(cfg config.KafkaConfig, producer sarama.SyncProducer, consumer sarama.ConsumerGroup) *KafkaHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaHub{
		rooms:      make(map[uint]map[interfaces.Client]struct{}),
		producer:   producer,
		consumer:   consumer,
		ctx:        ctx,
		cancelFunc: cancel,
		policy:     retryPolicyFromConfig(),
		cfg:        cfg,
	}
}

func (h *KafkaHub) StartConsumer() {
	if h.consumer != nil {
		go h.consumeMessages()
	}
}

// 关闭KafkaHub
func (h *KafkaHub) Close() error {
	h.cancelFunc()

	if err := h.producer.Close(); err != nil {
		logger.L.Error("Failed to close Kafka producer", zap.Error(err))
	}
	if h.consumer != nil {
		if err := h.consumer.Close(); err != nil {
			logger.L.Error("Failed to close Kafka consumer group", zap.Error(err))
		}
	}
	return nil
}

func (h *KafkaHub) Register(client interfaces.Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	addToRoom(h.rooms, client)
}

func (h *KafkaHub) Unregister(client interfaces.Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	removeFromRoom(h.rooms, client)
}

func (h *KafkaHub) SubscriberCount(leadID uint) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[leadID])
}

func (h *KafkaHub) topic() string {
	return h.cfg.TopicPrefix + "_lead_events"
}

// Publish 将事件写入Kafka, 以线索ID作为分区键
func (h *KafkaHub) Publish(event *model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	_, _, err = h.producer.SendMessage(&sarama.ProducerMessage{
		Topic: h.topic(),
		Key:   sarama.StringEncoder(leadKey(event.LeadID)),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		logger.L.Error("Failed to send change event to Kafka", zap.Uint("leadID", event.LeadID), zap.Error(err))
		return fmt.Errorf("failed to send change event to Kafka: %w", err)
	}
	metrics.EventsPublished.WithLabelValues(event.Type).Inc()
	return nil
}

func (h *KafkaHub) consumeMessages() {
	handler := &kafkaConsumerHandler{hub: h}
	topics := []string{h.topic()}

	for {
		select {
		case <-h.ctx.Done():
			logger.L.Info("Stopping Kafka consumer")
			return
		default:
			if err := h.consumer.Consume(h.ctx, topics, handler); err != nil {
				logger.L.Error("Kafka consumer error", zap.Error(err))
				time.Sleep(5 * time.Second)
			}
		}
	}
}

// 将一条已编码的事件分发给本实例上订阅该线索的客户端
func (h *KafkaHub) dispatch(data []byte) {
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

type kafkaConsumerHandler struct {
	hub *KafkaHub
}

func (h *kafkaConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.hub.dispatch(message.Value)
		session.MarkMessage(message, "")
	}
	return nil
}
