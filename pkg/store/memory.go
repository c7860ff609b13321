package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore 进程内存储，用于测试和临时会话
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]json.RawMessage
	feed   feed
	closed bool
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]json.RawMessage),
	}
}

// Get 读取键
func (s *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return selectKeys(s.data, keys), nil
}

// Set 写入键
func (s *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	changes := applyChanges(s.data, encoded)
	s.mu.Unlock()

	s.feed.publish(changes)
	return nil
}

// Clear 清空
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	changes := make(ChangeSet, len(s.data))
	for key := range s.data {
		changes[key] = nil
	}
	s.data = make(map[string]json.RawMessage)
	s.mu.Unlock()

	s.feed.publish(changes)
	return nil
}

// Subscribe 订阅变化
func (s *MemoryStore) Subscribe() (<-chan ChangeSet, func()) {
	return s.feed.subscribe()
}

// Close 关闭存储
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.feed.close()
	return nil
}
