package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// JSONStore 以单个 JSON 文件保存的存储
type JSONStore struct {
	filePath string
	data     map[string]json.RawMessage
	mutex    sync.RWMutex
	logger   *zap.Logger
	feed     feed
	closed   bool
}

// NewJSONStore 创建 JSON 文件存储
func NewJSONStore(filePath string, logger *zap.Logger) (*JSONStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("store path is required")
	}

	s := &JSONStore{
		filePath: filePath,
		logger:   logger,
	}

	// 确保目录存在
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	return s, nil
}

// load 加载文件，文件不存在时从空存储开始
func (s *JSONStore) load() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = make(map[string]json.RawMessage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}

	values := make(map[string]json.RawMessage)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to parse store file: %w", err)
		}
	}

	s.data = values
	s.logger.Debug("loaded store",
		zap.String("path", s.filePath),
		zap.Int("keys", len(values)))

	return nil
}

// saveUnsafe 原子写入（需要已持有锁）
func (s *JSONStore) saveUnsafe() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store data: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp store file: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename store file: %w", err)
	}

	return nil
}

// Path 文件路径
func (s *JSONStore) Path() string {
	return s.filePath
}

// Get 读取键
func (s *JSONStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return selectKeys(s.data, keys), nil
}

// Set 写入键并落盘
func (s *JSONStore) Set(ctx context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return ErrClosed
	}
	changes := applyChanges(s.data, encoded)
	if len(changes) > 0 {
		if err := s.saveUnsafe(); err != nil {
			s.mutex.Unlock()
			return err
		}
	}
	s.mutex.Unlock()

	s.feed.publish(changes)
	return nil
}

// Clear 清空并落盘
func (s *JSONStore) Clear(ctx context.Context) error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return ErrClosed
	}
	changes := make(ChangeSet, len(s.data))
	for key := range s.data {
		changes[key] = nil
	}
	s.data = make(map[string]json.RawMessage)
	if err := s.saveUnsafe(); err != nil {
		s.mutex.Unlock()
		return err
	}
	s.mutex.Unlock()

	s.logger.Info("store cleared", zap.String("path", s.filePath))
	s.feed.publish(changes)
	return nil
}

// Subscribe 订阅本进程内的变化
func (s *JSONStore) Subscribe() (<-chan ChangeSet, func()) {
	return s.feed.subscribe()
}

// Close 关闭存储
func (s *JSONStore) Close() error {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()

	s.feed.close()
	return nil
}
