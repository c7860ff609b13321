package translator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-popup-translator/internal/catalog"
	"github.com/nerdneilsfield/go-popup-translator/internal/debounce"
	"github.com/nerdneilsfield/go-popup-translator/internal/i18n"
	"github.com/nerdneilsfield/go-popup-translator/internal/pairs"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// Localizer 协调器使用的本地化能力
type Localizer interface {
	Message(key string, substitutions ...string) string
	UILanguage() string
	AcceptLanguages() []string
	DetectLanguage(ctx context.Context, text string) i18n.DetectionResult
}

// Coordinator 翻译协调器：确定语言、调用翻译器、处理同语言和反向翻译，并持久化结果
type Coordinator struct {
	registry           *providers.Registry
	store              store.Store
	localizer          Localizer
	catalog            *catalog.Cache
	pairs              *pairs.Memory
	sourceTextDebounce *debounce.Debouncer
	opts               coordinatorOptions

	mu         sync.Mutex
	translator providers.Translator
	languages  *providers.SupportedLanguages
	state      State
	seq        uint64
	cancel     context.CancelFunc
	text       string
	detected   string
}

// NewCoordinator 创建翻译协调器
func NewCoordinator(registry *providers.Registry, s store.Store, localizer Localizer, options ...Option) *Coordinator {
	opts := coordinatorOptions{
		logger:          zap.NewNop(),
		sourceTextDelay: DefaultSourceTextDelay,
		newRequestID:    func() string { return uuid.NewString() },
	}
	for _, option := range options {
		option(&opts)
	}

	return &Coordinator{
		registry:           registry,
		store:              s,
		localizer:          localizer,
		catalog:            catalog.New(s, opts.logger),
		pairs:              pairs.New(s),
		sourceTextDebounce: debounce.New(opts.sourceTextDelay),
		opts:               opts,
	}
}

// State 当前状态
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Text 当前输入文本
func (c *Coordinator) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Translator 当前翻译器
func (c *Coordinator) Translator() providers.Translator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translator
}

// Languages 当前翻译器的语言列表
func (c *Coordinator) Languages() *providers.SupportedLanguages {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.languages
}

// Selection 读取当前的语言选择，必要时修正
func (c *Coordinator) Selection(ctx context.Context) (catalog.Selection, error) {
	_, languages, err := c.active(ctx)
	if err != nil {
		return catalog.Selection{}, err
	}
	return c.catalog.Select(ctx, languages)
}

// SetTranslator 切换翻译器，未知的 uid 回退到第一个注册的翻译器。
// 保存选择、加载语言列表并修正不在列表中的语言选择
func (c *Coordinator) SetTranslator(ctx context.Context, uid string) (providers.Translator, error) {
	translator, err := c.registry.Resolve(uid)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, map[string]any{store.KeyTranslatorUID: translator.UID()}); err != nil {
		return nil, fmt.Errorf("failed to store translator: %w", err)
	}

	languages, err := c.catalog.Load(ctx, translator, c.localizer.UILanguage(), c.localizer.AcceptLanguages())
	if err != nil {
		return nil, fmt.Errorf("failed to load languages for %s: %w", translator.UID(), err)
	}

	if _, err := c.catalog.Select(ctx, languages); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.translator = translator
	c.languages = languages
	c.mu.Unlock()

	c.opts.logger.Debug("切换翻译器",
		zap.String("requested", uid),
		zap.String("translator", translator.UID()))

	return translator, nil
}

// active 返回当前翻译器，尚未选择时使用存储中的翻译器
func (c *Coordinator) active(ctx context.Context) (providers.Translator, *providers.SupportedLanguages, error) {
	c.mu.Lock()
	translator, languages := c.translator, c.languages
	c.mu.Unlock()

	if translator != nil && languages != nil {
		return translator, languages, nil
	}

	uid, err := store.GetString(ctx, c.store, store.KeyTranslatorUID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := c.SetTranslator(ctx, uid); err != nil {
		if errors.Is(err, providers.ErrUnknownTranslator) {
			return nil, nil, ErrNoTranslator
		}
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translator, c.languages, nil
}

// SetSourceLanguage 按代码或名称选择源语言，返回选中的代码
func (c *Coordinator) SetSourceLanguage(ctx context.Context, query string) (string, error) {
	_, languages, err := c.active(ctx)
	if err != nil {
		return "", err
	}

	code, err := catalog.Resolve(languages.SourceLanguages, query)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, map[string]any{store.KeySourceLangCode: code}); err != nil {
		return "", fmt.Errorf("failed to store source language: %w", err)
	}
	return code, nil
}

// SetTargetLanguage 按代码或名称选择目标语言，返回选中的代码
func (c *Coordinator) SetTargetLanguage(ctx context.Context, query string) (string, error) {
	_, languages, err := c.active(ctx)
	if err != nil {
		return "", err
	}

	code, err := catalog.Resolve(languages.TargetLanguages, query)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, map[string]any{store.KeyTargetLangCode: code}); err != nil {
		return "", fmt.Errorf("failed to store target language: %w", err)
	}
	return code, nil
}

// Swap 交换源语言和目标语言。源语言为自动检测时使用上次检测到的语言，
// 没有检测结果时返回 ErrNothingToSwap
func (c *Coordinator) Swap(ctx context.Context) (catalog.Selection, error) {
	_, languages, err := c.active(ctx)
	if err != nil {
		return catalog.Selection{}, err
	}

	selection, err := c.catalog.Select(ctx, languages)
	if err != nil {
		return catalog.Selection{}, err
	}

	source := selection.SourceLanguageCode
	if source == languages.AutoDetectLanguageCode {
		detected, err := store.GetString(ctx, c.store, store.KeyDetectedLanguageCode)
		if err != nil {
			return catalog.Selection{}, err
		}
		if detected == "" {
			return selection, ErrNothingToSwap
		}
		source = detected
	}

	swapped := catalog.Selection{
		SourceLanguageCode: selection.TargetLanguageCode,
		TargetLanguageCode: source,
	}
	if err := c.store.Set(ctx, map[string]any{
		store.KeySourceLangCode: swapped.SourceLanguageCode,
		store.KeyTargetLangCode: swapped.TargetLanguageCode,
	}); err != nil {
		return catalog.Selection{}, fmt.Errorf("failed to store swapped languages: %w", err)
	}

	return swapped, nil
}

// Reverse 是否开启反向翻译
func (c *Coordinator) Reverse(ctx context.Context) (bool, error) {
	values, err := c.store.Get(ctx, store.KeyReverse)
	if err != nil {
		return false, err
	}
	return store.Bool(values, store.KeyReverse), nil
}

// SetReverse 开启或关闭反向翻译，开启时重新翻译当前文本
func (c *Coordinator) SetReverse(ctx context.Context, on bool) (*Outcome, error) {
	if err := c.store.Set(ctx, map[string]any{store.KeyReverse: on}); err != nil {
		return nil, fmt.Errorf("failed to store reverse mode: %w", err)
	}
	if !on {
		return nil, nil
	}
	return c.Translate(ctx, c.currentText(ctx))
}

// currentText 当前输入，内存中没有时读取存储
func (c *Coordinator) currentText(ctx context.Context) string {
	c.sourceTextDebounce.Flush()

	if text := c.Text(); text != "" {
		return text
	}
	text, err := store.GetString(ctx, c.store, store.KeySourceText)
	if err != nil {
		c.opts.logger.Warn("读取输入文本失败", zap.Error(err))
		return ""
	}
	return text
}

// UpdateSourceText 记录正在编辑的输入，防抖后保存
func (c *Coordinator) UpdateSourceText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()

	c.sourceTextDebounce.Trigger(func() {
		if err := c.store.Set(context.Background(), map[string]any{store.KeySourceText: text}); err != nil {
			c.opts.logger.Warn("保存输入文本失败", zap.Error(err))
		}
	})
}

// Clear 取消进行中的翻译，清除输入、输出和检测到的语言
func (c *Coordinator) Clear(ctx context.Context) error {
	c.sourceTextDebounce.Cancel()
	_, seq, done := c.begin(ctx)
	defer done()

	return c.clear(ctx, seq)
}

func (c *Coordinator) clear(ctx context.Context, seq uint64) error {
	return c.commit(seq, func() error {
		c.text = ""
		c.detected = ""
		c.state = Idle
		return c.store.Set(ctx, map[string]any{
			store.KeySourceText:           "",
			store.KeyTranslated:           nil,
			store.KeyTranslatedReverse:    nil,
			store.KeyDetectedLanguageCode: nil,
		})
	})
}

// AutoDetectLabel 自动检测选项的显示文本：有检测结果时显示检测到的语言
func (c *Coordinator) AutoDetectLabel() string {
	c.mu.Lock()
	languages, detected := c.languages, c.detected
	c.mu.Unlock()

	if languages == nil {
		return ""
	}
	if detected != "" {
		if l, ok := languages.FindSource(detected); ok {
			return c.localizer.Message("detectedLanguage", l.FriendlyName)
		}
		return c.localizer.Message("detectedLanguage", detected)
	}
	if l, ok := languages.FindSource(languages.AutoDetectLanguageCode); ok {
		return l.FriendlyName
	}
	return languages.AutoDetectLanguageCode
}

// TranslateWord 词典中点击反向翻译词：与当前输入不同时翻译该词
func (c *Coordinator) TranslateWord(ctx context.Context, word string) (*Outcome, error) {
	if word == c.Text() {
		return nil, nil
	}
	return c.Translate(ctx, word)
}

// Restore 启动时恢复：有新的选中文本时翻译选中文本，
// 否则恢复上次的输入并显示保存的结果，结果不完整时重新翻译
func (c *Coordinator) Restore(ctx context.Context) (*Restored, error) {
	values, err := c.store.Get(ctx,
		store.KeyReverse,
		store.KeySourceText,
		store.KeySelectedText,
		store.KeyTranslated,
		store.KeyTranslatedReverse,
		store.KeyDetectedLanguageCode)
	if err != nil {
		return nil, err
	}

	if _, _, err := c.active(ctx); err != nil {
		return nil, err
	}

	reverse := store.Bool(values, store.KeyReverse)
	sourceText := store.String(values, store.KeySourceText)
	selectedText := store.String(values, store.KeySelectedText)

	if selectedText != "" && selectedText != sourceText {
		outcome, err := c.Translate(ctx, selectedText)
		if err != nil {
			return nil, err
		}
		return &Restored{Outcome: outcome, PreviousText: sourceText}, nil
	}

	if sourceText == "" {
		return &Restored{}, nil
	}

	detected := store.String(values, store.KeyDetectedLanguageCode)
	c.mu.Lock()
	c.text = sourceText
	c.detected = detected
	c.mu.Unlock()

	var translated, translatedReverse providers.TranslationResult
	hasTranslated, _ := store.Decode(values, store.KeyTranslated, &translated)
	hasReverse, _ := store.Decode(values, store.KeyTranslatedReverse, &translatedReverse)

	if hasTranslated && (!reverse || hasReverse) {
		selection, err := c.Selection(ctx)
		if err != nil {
			return nil, err
		}
		outcome := &Outcome{
			State:              Done,
			SourceText:         sourceText,
			SourceLanguageCode: translated.SourceLanguageCode,
			TargetLanguageCode: selection.TargetLanguageCode,
			Translation:        &translated,
			Redisplayed:        true,
		}
		if hasReverse {
			outcome.Reverse = &translatedReverse
		}
		c.mu.Lock()
		c.state = Done
		c.mu.Unlock()
		return &Restored{Outcome: outcome}, nil
	}

	outcome, err := c.Translate(ctx, sourceText)
	if err != nil {
		return nil, err
	}
	return &Restored{Outcome: outcome}, nil
}

// Close 保存尚未保存的输入
func (c *Coordinator) Close() {
	c.sourceTextDebounce.Flush()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// begin 开始新的请求并取消之前进行中的请求
func (c *Coordinator) begin(ctx context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.mu.Unlock()

	return ctx, seq, func() {
		c.mu.Lock()
		if c.seq == seq {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()
	}
}

// commit 仅当请求仍是最新的请求时执行写入
func (c *Coordinator) commit(seq uint64, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return ErrSuperseded
	}
	return fn()
}

// setState 仅当请求仍是最新的请求时更新状态
func (c *Coordinator) setState(seq uint64, state State) {
	_ = c.commit(seq, func() error {
		c.state = state
		return nil
	})
}
