package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"lead-chat/internal/model"
	"lead-chat/pkg/config"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisHubScopesEventsToLead(t *testing.T) {
	require.NoError(t, config.InitTest())
	mr := miniredis.RunT(t)

	hub, err := NewRedisHub(config.RedisConfig{Addr: mr.Addr(), ChannelPrefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { hub.Close() })

	five := &fakeClient{leadID: 5}
	six := &fakeClient{leadID: 6}
	hub.Register(five)
	hub.Register(six)
	assert.Equal(t, 1, hub.SubscriberCount(5))

	hub.StartSubscriber()
	require.Eventually(t, func() bool { return mr.PubSubNumPat() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(&model.ChangeEvent{Type: model.EventDelete, LeadID: 5, MessageID: "m-1"}))
	require.Eventually(t, func() bool { return len(five.events(t)) == 1 }, time.Second, 5*time.Millisecond)

	got := five.events(t)[0]
	assert.Equal(t, model.EventDelete, got.Type)
	assert.Equal(t, "m-1", got.MessageID)
	assert.Empty(t, six.events(t), "other leads receive nothing")

	// 无法解析的负载被丢弃, 后续事件照常分发
	assert.Equal(t, "test:lead:6", hub.channel(6))
	mr.Publish(hub.channel(6), "not json")
	require.NoError(t, hub.Publish(&model.ChangeEvent{Type: model.EventDelete, LeadID: 6, MessageID: "m-2"}))
	require.Eventually(t, func() bool { return len(six.events(t)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "m-2", six.events(t)[0].MessageID)
	assert.Len(t, five.events(t), 1)
}

func TestNewRedisHubFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisHub(config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestKafkaHubKeysEventsByLead(t *testing.T) {
	require.NoError(t, config.InitTest())
	producer := mocks.NewSyncProducer(t, nil)

	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	hub := newKafkaHub(config.KafkaConfig{TopicPrefix: "test"}, producer, nil)
	t.Cleanup(func() { hub.Close() })

	seven := &fakeClient{leadID: 7}
	other := &fakeClient{leadID: 8}
	hub.Register(seven)
	hub.Register(other)

	event := &model.ChangeEvent{Type: model.EventInsert, LeadID: 7, Message: &model.Message{ID: "m-9", LeadID: 7, Body: "hi"}}
	require.NoError(t, hub.Publish(event))

	require.NotNil(t, sent)
	assert.Equal(t, "test_lead_events", sent.Topic)
	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "7", string(key))

	value, err := sent.Value.Encode()
	require.NoError(t, err)
	var decoded model.ChangeEvent
	require.NoError(t, json.Unmarshal(value, &decoded))
	assert.Equal(t, "m-9", decoded.Message.ID)

	// 消费端收到同一条记录后只分发给该线索
	hub.dispatch(value)
	require.Len(t, seven.events(t), 1)
	assert.Equal(t, "hi", seven.events(t)[0].Message.Body)
	assert.Empty(t, other.events(t))
}

func TestKafkaHubPublishError(t *testing.T) {
	require.NoError(t, config.InitTest())
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	hub := newKafkaHub(config.KafkaConfig{TopicPrefix: "test"}, producer, nil)
	t.Cleanup(func() { hub.Close() })

	err := hub.Publish(&model.ChangeEvent{Type: model.EventInsert, LeadID: 1})
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
}
