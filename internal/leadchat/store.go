package leadchat

import (
	"sync"

	"lead-chat/internal/model"
)

// MessageStore 单个线索的消息序列, 按ID去重, 插入时追加到末尾不重新排序
type MessageStore struct {
	mu       sync.RWMutex
	messages []model.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) indexOf(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Replace 用初始加载的快照替换全部内容, 快照中的重复ID只保留第一个
func (s *MessageStore) Replace(messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]model.Message, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		s.messages = append(s.messages, m)
	}
}

func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// ApplyInsert 追加消息, 已存在相同ID时丢弃并返回 false
func (s *MessageStore) ApplyInsert(message model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(message.ID) >= 0 {
		return false
	}
	s.messages = append(s.messages, message)
	return true
}

// ApplyUpdate 合并正文, 编辑标记和时间戳; 未加载的消息忽略
func (s *MessageStore) ApplyUpdate(partial model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(partial.ID)
	if i < 0 {
		return false
	}
	existing := &s.messages[i]
	existing.Body = partial.Body
	existing.Edited = partial.Edited
	if !partial.UpdatedAt.IsZero() {
		existing.UpdatedAt = partial.UpdatedAt
	}
	if !partial.CreatedAt.IsZero() {
		existing.CreatedAt = partial.CreatedAt
	}
	if existing.Author == nil && partial.Author != nil {
		existing.Author = partial.Author
	}
	return true
}

// ApplyDelete 移除消息, 返回被移除的条目及其位置
func (s *MessageStore) ApplyDelete(id string) (model.Message, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Message{}, -1, false
	}
	removed := s.messages[i]
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	return removed, i, true
}

// Restore 将消息放回原位置, 期间已被重新插入时不做任何事
func (s *MessageStore) Restore(message model.Message, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(message.ID) >= 0 {
		return false
	}
	if index < 0 || index > len(s.messages) {
		index = len(s.messages)
	}
	s.messages = append(s.messages, model.Message{})
	copy(s.messages[index+1:], s.messages[index:])
	s.messages[index] = message
	return true
}

func (s *MessageStore) Get(id string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Message{}, false
	}
	return s.messages[i], true
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Snapshot 返回当前序列的副本
func (s *MessageStore) Snapshot() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
