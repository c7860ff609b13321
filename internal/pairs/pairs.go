// Package pairs 记住最近使用的语言对，用于解决源语言与目标语言相同的情况
package pairs

import (
	"context"
	"fmt"

	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// LanguagePair 语言对
type LanguagePair struct {
	SourceLanguageCode string `json:"sourceLanguageCode"`
	TargetLanguageCode string `json:"targetLanguageCode"`
}

// Memory 语言对记忆，按最近使用排序保存在存储中
type Memory struct {
	store store.Store
}

// New 创建语言对记忆
func New(s store.Store) *Memory {
	return &Memory{store: s}
}

// List 返回保存的语言对，最近使用的在前
func (m *Memory) List(ctx context.Context) ([]LanguagePair, error) {
	var pairs []LanguagePair
	if _, err := store.GetValue(ctx, m.store, store.KeyLanguagePairs, &pairs); err != nil {
		return nil, fmt.Errorf("failed to read language pairs: %w", err)
	}
	return pairs, nil
}

// FindBestTargetLanguageCode 从最近的语言对中为源语言找一个目标语言。
// 语言对的源语言匹配时返回其目标语言，目标语言匹配时返回其源语言，
// 都不匹配时返回 proposedTarget
func (m *Memory) FindBestTargetLanguageCode(ctx context.Context, source, proposedTarget string) (string, error) {
	pairs, err := m.List(ctx)
	if err != nil {
		return "", err
	}

	for _, pair := range pairs {
		if pair.SourceLanguageCode == source {
			return pair.TargetLanguageCode, nil
		}
		if pair.TargetLanguageCode == source {
			return pair.SourceLanguageCode, nil
		}
	}

	return proposedTarget, nil
}

// StoreLanguagePair 将语言对放到最前面，去掉自身语言对以及任意顺序的重复项
func (m *Memory) StoreLanguagePair(ctx context.Context, source, target string) error {
	pairs, err := m.List(ctx)
	if err != nil {
		return err
	}

	updated := make([]LanguagePair, 0, len(pairs)+1)
	if source != target {
		updated = append(updated, LanguagePair{SourceLanguageCode: source, TargetLanguageCode: target})
	}
	for _, p := range pairs {
		if p.SourceLanguageCode == p.TargetLanguageCode {
			continue
		}
		if p.SourceLanguageCode == source && p.TargetLanguageCode == target {
			continue
		}
		if p.TargetLanguageCode == source && p.SourceLanguageCode == target {
			continue
		}
		updated = append(updated, p)
	}

	if err := m.store.Set(ctx, map[string]any{store.KeyLanguagePairs: updated}); err != nil {
		return fmt.Errorf("failed to store language pairs: %w", err)
	}
	return nil
}
