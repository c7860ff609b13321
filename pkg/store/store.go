// Package store 持久化键值存储，保存语言选择、缓存的语言列表和最近的翻译结果
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// 存储键
const (
	KeySourceLangCode       = "sourceLangCode"
	KeyTargetLangCode       = "targetLangCode"
	KeyTranslatorUID        = "translatorUid"
	KeyCacheLanguages       = "cacheLanguages"
	KeyCacheTranslatorUID   = "cacheTranslatorUid"
	KeyCacheUILanguageCode  = "cacheUiLanguageCode"
	KeySourceText           = "sourceText"
	KeySelectedText         = "selectedText"
	KeyTranslated           = "translated"
	KeyTranslatedReverse    = "translatedReverse"
	KeyDetectedLanguageCode = "detectedLanguageCode"
	KeyLanguagePairs        = "languagePairs"
	KeyReverse              = "reverse"
)

// 后端类型
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrClosed 存储已关闭
var ErrClosed = errors.New("store closed")

// ChangeSet 一次写入中发生变化的键，值为 nil 表示键被删除
type ChangeSet map[string]json.RawMessage

// Store 键值存储
type Store interface {
	// Get 读取指定的键，不存在的键不出现在结果中。不传键时返回全部
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// Set 写入多个键，值为 nil 时删除该键
	Set(ctx context.Context, values map[string]any) error

	// Clear 删除所有键
	Clear(ctx context.Context) error

	// Subscribe 订阅变化，返回的函数用于取消订阅
	Subscribe() (<-chan ChangeSet, func())

	// Close 关闭存储
	Close() error
}

// Config 存储配置
type Config struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// Open 根据配置打开存储
func Open(config Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch config.Backend {
	case BackendJSON, "":
		return NewJSONStore(config.Path, logger)
	case BackendSQLite:
		return NewSQLiteStore(config.Path, logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", config.Backend)
	}
}

// encodeValues 将写入的值编码为 JSON，nil 保持为 nil
func encodeValues(values map[string]any) (map[string]json.RawMessage, error) {
	encoded := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		if value == nil {
			encoded[key] = nil
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		encoded[key] = data
	}
	return encoded, nil
}

// applyChanges 将编码后的值合并到 data 中，返回实际变化的键
func applyChanges(data map[string]json.RawMessage, encoded map[string]json.RawMessage) ChangeSet {
	changes := make(ChangeSet)
	for key, value := range encoded {
		old, exists := data[key]
		if value == nil {
			if exists {
				delete(data, key)
				changes[key] = nil
			}
			continue
		}
		if exists && bytes.Equal(old, value) {
			continue
		}
		data[key] = value
		changes[key] = value
	}
	return changes
}

// selectKeys 从 data 中挑出指定键的副本
func selectKeys(data map[string]json.RawMessage, keys []string) map[string]json.RawMessage {
	result := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		for key, value := range data {
			result[key] = append(json.RawMessage(nil), value...)
		}
		return result
	}
	for _, key := range keys {
		if value, ok := data[key]; ok {
			result[key] = append(json.RawMessage(nil), value...)
		}
	}
	return result
}

// feed 变化广播
type feed struct {
	mu          sync.Mutex
	subscribers map[int]chan ChangeSet
	next        int
}

func (f *feed) subscribe() (<-chan ChangeSet, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribers == nil {
		f.subscribers = make(map[int]chan ChangeSet)
	}
	id := f.next
	f.next++
	ch := make(chan ChangeSet, 16)
	f.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subscribers[id]; ok {
				delete(f.subscribers, id)
				close(sub)
			}
		})
	}
}

// publish 非阻塞地广播，订阅者跟不上时丢弃
func (f *feed) publish(changes ChangeSet) {
	if len(changes) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subscribers {
		select {
		case ch <- changes:
		default:
		}
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, ch := range f.subscribers {
		delete(f.subscribers, id)
		close(ch)
	}
}
