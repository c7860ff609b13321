// Package catalog 按翻译器和界面语言缓存排好序的语言列表
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// ErrLanguageNotFound 查询无法匹配任何语言
var ErrLanguageNotFound = errors.New("language not found")

// Cache 语言列表缓存
type Cache struct {
	store  store.Store
	logger *zap.Logger
}

// New 创建语言列表缓存
func New(s store.Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, logger: logger}
}

// Load 返回翻译器在界面语言下的语言列表。
// 缓存键为 (翻译器 uid, 界面语言)，命中时直接返回保存的顺序，
// 未命中时获取、排序并保存
func (c *Cache) Load(ctx context.Context, translator providers.Translator, uiLanguageCode string, acceptLanguages []string) (*providers.SupportedLanguages, error) {
	values, err := c.store.Get(ctx, store.KeyCacheLanguages, store.KeyCacheTranslatorUID, store.KeyCacheUILanguageCode)
	if err != nil {
		return nil, fmt.Errorf("failed to read language cache: %w", err)
	}

	var cached providers.SupportedLanguages
	found, err := store.Decode(values, store.KeyCacheLanguages, &cached)
	if err != nil {
		c.logger.Warn("语言缓存损坏，重新获取", zap.Error(err))
		found = false
	}
	if found &&
		store.String(values, store.KeyCacheTranslatorUID) == translator.UID() &&
		store.String(values, store.KeyCacheUILanguageCode) == uiLanguageCode {
		c.logger.Debug("使用缓存的语言列表",
			zap.String("translator", translator.UID()),
			zap.String("ui", uiLanguageCode))
		return &cached, nil
	}

	languages, err := translator.GetSupportedLanguages(ctx, uiLanguageCode)
	if err != nil {
		return nil, err
	}
	if languages.AutoDetectLanguageCode == "" {
		languages.AutoDetectLanguageCode = providers.DefaultAutoDetectLanguageCode
	}

	Sort(languages, uiLanguageCode, acceptLanguages)

	if err := c.store.Set(ctx, map[string]any{
		store.KeyCacheLanguages:      languages,
		store.KeyCacheTranslatorUID:  translator.UID(),
		store.KeyCacheUILanguageCode: uiLanguageCode,
	}); err != nil {
		return nil, fmt.Errorf("failed to store language cache: %w", err)
	}

	c.logger.Debug("语言列表已缓存",
		zap.String("translator", translator.UID()),
		zap.String("ui", uiLanguageCode),
		zap.Int("sources", len(languages.SourceLanguages)),
		zap.Int("targets", len(languages.TargetLanguages)))

	return languages, nil
}

// Sort 对源语言和目标语言排序：自动检测第一，英语第二，
// 其余可接受语言（不以 en 开头）按顺序排在后面，剩下的按本地化名称排序
func Sort(languages *providers.SupportedLanguages, uiLanguageCode string, acceptLanguages []string) {
	important := map[string]int{
		languages.AutoDetectLanguageCode: 1,
		"en":                             2,
	}
	rank := 3
	for _, code := range acceptLanguages {
		if strings.HasPrefix(code, "en") {
			continue
		}
		important[code] = rank
		rank++
	}

	tag, err := language.Parse(uiLanguageCode)
	if err != nil {
		tag = language.English
	}
	collator := collate.New(tag)

	less := func(list []providers.Language) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := list[i], list[j]
			rankA, importantA := important[a.Code]
			rankB, importantB := important[b.Code]

			switch {
			case importantA && !importantB:
				return true
			case importantB && !importantA:
				return false
			case importantA && importantB:
				return rankA < rankB
			}
			return collator.CompareString(a.FriendlyName, b.FriendlyName) < 0
		}
	}

	sort.SliceStable(languages.SourceLanguages, less(languages.SourceLanguages))
	sort.SliceStable(languages.TargetLanguages, less(languages.TargetLanguages))
}

// Selection 当前选择的语言
type Selection struct {
	SourceLanguageCode string
	TargetLanguageCode string
}

// Select 读取保存的源语言和目标语言，不在列表中的代码替换为列表的第一项并保存
func (c *Cache) Select(ctx context.Context, languages *providers.SupportedLanguages) (Selection, error) {
	values, err := c.store.Get(ctx, store.KeySourceLangCode, store.KeyTargetLangCode)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to read language selection: %w", err)
	}

	selection := Selection{
		SourceLanguageCode: store.String(values, store.KeySourceLangCode),
		TargetLanguageCode: store.String(values, store.KeyTargetLangCode),
	}

	repaired := make(map[string]any)
	if _, ok := languages.FindSource(selection.SourceLanguageCode); !ok && len(languages.SourceLanguages) > 0 {
		selection.SourceLanguageCode = languages.SourceLanguages[0].Code
		repaired[store.KeySourceLangCode] = selection.SourceLanguageCode
	}
	if _, ok := languages.FindTarget(selection.TargetLanguageCode); !ok && len(languages.TargetLanguages) > 0 {
		selection.TargetLanguageCode = languages.TargetLanguages[0].Code
		repaired[store.KeyTargetLangCode] = selection.TargetLanguageCode
	}

	if len(repaired) > 0 {
		if err := c.store.Set(ctx, repaired); err != nil {
			return Selection{}, fmt.Errorf("failed to store language selection: %w", err)
		}
		c.logger.Debug("修正语言选择",
			zap.String("source", selection.SourceLanguageCode),
			zap.String("target", selection.TargetLanguageCode))
	}

	return selection, nil
}

// Resolve 将用户输入的代码或名称解析为列表中的语言代码。
// 依次尝试代码、名称的精确匹配（忽略大小写），最后模糊匹配名称
func Resolve(list []providers.Language, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrLanguageNotFound
	}

	folder := cases.Fold()
	folded := folder.String(query)

	for _, l := range list {
		if folder.String(l.Code) == folded {
			return l.Code, nil
		}
	}
	for _, l := range list {
		if folder.String(l.FriendlyName) == folded {
			return l.Code, nil
		}
	}

	names := make([]string, len(list))
	for i, l := range list {
		names[i] = l.FriendlyName
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	if len(ranks) == 0 {
		return "", fmt.Errorf("%w: %s", ErrLanguageNotFound, query)
	}
	sort.Sort(ranks)
	return list[ranks[0].OriginalIndex].Code, nil
}
