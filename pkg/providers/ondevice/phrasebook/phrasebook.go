// Package phrasebook 基于磁盘上 TOML 短语本的本地翻译能力
package phrasebook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/cases"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice"
)

// Book 一个语言对的短语本
type Book struct {
	SourceLang   string            `toml:"source_lang"`
	TargetLang   string            `toml:"target_lang"`
	Translations map[string]string `toml:"translations"`
}

type pairKey struct {
	source string
	target string
}

// Factory 短语本翻译能力，文件按 {source}_{target}.toml 命名
type Factory struct {
	dir string

	mu      sync.Mutex
	books   map[pairKey]map[string]string
	loading map[pairKey]chan struct{}
	errs    map[pairKey]error
}

// New 创建短语本能力
func New(dir string) *Factory {
	return &Factory{
		dir:     dir,
		books:   make(map[pairKey]map[string]string),
		loading: make(map[pairKey]chan struct{}),
		errs:    make(map[pairKey]error),
	}
}

// Path 返回语言对对应的文件路径
func (f *Factory) Path(sourceLanguageCode, targetLanguageCode string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s_%s.toml", sourceLanguageCode, targetLanguageCode))
}

// Availability 已加载为可用，文件存在为需要准备，否则不可用
func (f *Factory) Availability(ctx context.Context, sourceLanguageCode, targetLanguageCode string) (ondevice.Availability, error) {
	key := pairKey{source: sourceLanguageCode, target: targetLanguageCode}

	f.mu.Lock()
	_, loaded := f.books[key]
	f.mu.Unlock()
	if loaded {
		return ondevice.Available, nil
	}

	if f.dir == "" {
		return ondevice.Unavailable, nil
	}
	if _, err := os.Stat(f.Path(sourceLanguageCode, targetLanguageCode)); err != nil {
		if os.IsNotExist(err) {
			return ondevice.Unavailable, nil
		}
		return ondevice.Unavailable, err
	}
	return ondevice.NeedsProvisioning, nil
}

// Provision 在后台加载短语本
func (f *Factory) Provision(ctx context.Context, sourceLanguageCode, targetLanguageCode string, monitor ondevice.ProgressFunc) <-chan error {
	key := pairKey{source: sourceLanguageCode, target: targetLanguageCode}
	done := make(chan error, 1)

	f.mu.Lock()
	if _, loaded := f.books[key]; loaded {
		f.mu.Unlock()
		done <- nil
		close(done)
		return done
	}
	loading, inFlight := f.loading[key]
	if !inFlight {
		loading = make(chan struct{})
		f.loading[key] = loading
		go f.load(key, loading, monitor)
	}
	f.mu.Unlock()

	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			done <- ctx.Err()
		case <-loading:
			f.mu.Lock()
			err := f.errs[key]
			f.mu.Unlock()
			done <- err
		}
	}()

	return done
}

func (f *Factory) load(key pairKey, loading chan struct{}, monitor ondevice.ProgressFunc) {
	report := func(loaded float64) {
		if monitor != nil {
			monitor(loaded)
		}
	}

	report(0)
	index, err := f.read(key)
	if err == nil {
		report(1)
	}

	f.mu.Lock()
	if err == nil {
		f.books[key] = index
		delete(f.errs, key)
	} else {
		f.errs[key] = err
	}
	delete(f.loading, key)
	f.mu.Unlock()

	close(loading)
}

func (f *Factory) read(key pairKey) (map[string]string, error) {
	path := f.Path(key.source, key.target)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrasebook: %w", err)
	}

	var book Book
	if err := toml.Unmarshal(content, &book); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phrasebook %s: %w", path, err)
	}
	if book.SourceLang != key.source || book.TargetLang != key.target {
		return nil, fmt.Errorf("phrasebook %s is for %s:%s", path, book.SourceLang, book.TargetLang)
	}

	index := make(map[string]string, len(book.Translations))
	for phrase, translation := range book.Translations {
		index[normalize(phrase)] = translation
	}
	return index, nil
}

// Create 返回已加载语言对的翻译器
func (f *Factory) Create(ctx context.Context, sourceLanguageCode, targetLanguageCode string) (ondevice.LocalTranslator, error) {
	key := pairKey{source: sourceLanguageCode, target: targetLanguageCode}

	f.mu.Lock()
	defer f.mu.Unlock()

	index, ok := f.books[key]
	if !ok {
		return nil, fmt.Errorf("phrasebook %s:%s not loaded", sourceLanguageCode, targetLanguageCode)
	}
	return &Translator{index: index}, nil
}

// Translator 短语本翻译器
type Translator struct {
	index map[string]string
}

// Translate 精确匹配短语，没有条目时返回空字符串
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	return t.index[normalize(text)], nil
}

func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
