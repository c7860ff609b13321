package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// countingTranslator 记录语言列表获取次数
type countingTranslator struct {
	uid     string
	fetches int
	err     error
}

func (c *countingTranslator) UID() string                    { return c.uid }
func (c *countingTranslator) FriendlyName() string           { return c.uid }
func (c *countingTranslator) AutoDetectLanguageCode() string { return "auto" }

func (c *countingTranslator) GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	c.fetches++
	if c.err != nil {
		return nil, c.err
	}
	list := []providers.Language{
		{Code: "fr", FriendlyName: "French"},
		{Code: "de", FriendlyName: "German"},
		{Code: "en", FriendlyName: "English"},
		{Code: "es", FriendlyName: "Spanish"},
		{Code: "ru", FriendlyName: "Russian"},
		{Code: "af", FriendlyName: "Afrikaans"},
	}
	sources := append([]providers.Language{{Code: "auto", FriendlyName: "Detect language"}}, list...)
	return &providers.SupportedLanguages{
		SourceLanguages: sources,
		TargetLanguages: append([]providers.Language(nil), list...),
	}, nil
}

func (c *countingTranslator) Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *providers.Requests) (*providers.TranslationResult, error) {
	return nil, errors.New("not implemented")
}

func codes(list []providers.Language) []string {
	result := make([]string, len(list))
	for i, l := range list {
		result[i] = l.Code
	}
	return result
}

func TestLoadSortsAndCaches(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	cache := New(s, nil)
	translator := &countingTranslator{uid: "google"}

	languages, err := cache.Load(ctx, translator, "en", []string{"en-US", "en", "ru", "de"})
	require.NoError(t, err)

	assert.Equal(t, "auto", languages.AutoDetectLanguageCode)
	assert.Equal(t, []string{"auto", "en", "ru", "de", "af", "fr", "es"}, codes(languages.SourceLanguages))
	assert.Equal(t, []string{"en", "ru", "de", "af", "fr", "es"}, codes(languages.TargetLanguages))

	values, err := s.Get(ctx, store.KeyCacheTranslatorUID, store.KeyCacheUILanguageCode)
	require.NoError(t, err)
	assert.Equal(t, "google", store.String(values, store.KeyCacheTranslatorUID))
	assert.Equal(t, "en", store.String(values, store.KeyCacheUILanguageCode))

	// 相同键不再获取，顺序来自缓存而不是重新排序
	again, err := cache.Load(ctx, translator, "en", []string{"fr"})
	require.NoError(t, err)
	assert.Equal(t, 1, translator.fetches)
	assert.Equal(t, codes(languages.SourceLanguages), codes(again.SourceLanguages))
}

func TestLoadInvalidatesOnKeyChange(t *testing.T) {
	ctx := context.Background()
	cache := New(store.NewMemoryStore(), nil)
	google := &countingTranslator{uid: "google"}

	_, err := cache.Load(ctx, google, "en", nil)
	require.NoError(t, err)
	_, err = cache.Load(ctx, google, "ru", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, google.fetches)

	openai := &countingTranslator{uid: "openai"}
	_, err = cache.Load(ctx, openai, "ru", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, openai.fetches)
}

func TestLoadError(t *testing.T) {
	cache := New(store.NewMemoryStore(), nil)
	translator := &countingTranslator{uid: "google", err: &providers.NetworkError{Op: "languages", Err: errors.New("offline")}}

	_, err := cache.Load(context.Background(), translator, "en", nil)
	var netErr *providers.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestSelectRepairsUnknownCodes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	cache := New(s, nil)

	languages, err := cache.Load(ctx, &countingTranslator{uid: "google"}, "en", nil)
	require.NoError(t, err)

	selection, err := cache.Select(ctx, languages)
	require.NoError(t, err)
	assert.Equal(t, Selection{SourceLanguageCode: "auto", TargetLanguageCode: "en"}, selection)

	require.NoError(t, s.Set(ctx, map[string]any{
		store.KeySourceLangCode: "fr",
		store.KeyTargetLangCode: "xx",
	}))
	selection, err = cache.Select(ctx, languages)
	require.NoError(t, err)
	assert.Equal(t, Selection{SourceLanguageCode: "fr", TargetLanguageCode: "en"}, selection)

	target, err := store.GetString(ctx, s, store.KeyTargetLangCode)
	require.NoError(t, err)
	assert.Equal(t, "en", target)
}

func TestResolve(t *testing.T) {
	list := []providers.Language{
		{Code: "zh-CN", FriendlyName: "Chinese (Simplified)"},
		{Code: "zh-TW", FriendlyName: "Chinese (Traditional)"},
		{Code: "fr", FriendlyName: "French"},
		{Code: "de", FriendlyName: "German"},
	}

	tests := []struct {
		query string
		want  string
	}{
		{"fr", "fr"},
		{"ZH-cn", "zh-CN"},
		{"german", "de"},
		{"frnch", "fr"},
		{"Simplified", "zh-CN"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			code, err := Resolve(list, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}

	_, err := Resolve(list, "klingon")
	assert.ErrorIs(t, err, ErrLanguageNotFound)
	_, err = Resolve(list, "  ")
	assert.ErrorIs(t, err, ErrLanguageNotFound)
}
