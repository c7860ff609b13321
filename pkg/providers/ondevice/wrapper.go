package ondevice

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// Option 包装器配置选项函数
type Option func(*wrapperOptions)

type wrapperOptions struct {
	detectors   DetectorFactory
	translators TranslatorFactory
	progress    func(capability string, loaded float64)
	logger      *zap.Logger
}

// WithDetector 设置本地语言检测能力
func WithDetector(factory DetectorFactory) Option {
	return func(o *wrapperOptions) {
		o.detectors = factory
	}
}

// WithTranslator 设置本地翻译能力
func WithTranslator(factory TranslatorFactory) Option {
	return func(o *wrapperOptions) {
		o.translators = factory
	}
}

// WithProgress 设置模型准备进度回调
func WithProgress(progress func(capability string, loaded float64)) Option {
	return func(o *wrapperOptions) {
		o.progress = progress
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *wrapperOptions) {
		o.logger = logger
	}
}

// Wrapper 优先使用本地能力的翻译器装饰器
type Wrapper struct {
	origin providers.Translator
	opts   wrapperOptions

	// 按界面语言缓存的语言列表，用于将检测结果对应到后端的语言代码
	mu        sync.Mutex
	languages map[string]*providers.SupportedLanguages
}

// New 包装一个翻译器
func New(origin providers.Translator, options ...Option) *Wrapper {
	opts := wrapperOptions{
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.progress == nil {
		logger := opts.logger
		opts.progress = func(capability string, loaded float64) {
			logger.Debug("本地模型下载进度",
				zap.String("capability", capability),
				zap.Float64("loaded", loaded))
		}
	}

	return &Wrapper{
		origin:    origin,
		opts:      opts,
		languages: make(map[string]*providers.SupportedLanguages),
	}
}

// UID 获取翻译器标识
func (w *Wrapper) UID() string {
	return "ondevice+" + w.origin.UID()
}

// FriendlyName 获取显示名称
func (w *Wrapper) FriendlyName() string {
	return "On-device with " + w.origin.FriendlyName()
}

// AutoDetectLanguageCode 与被包装的翻译器一致
func (w *Wrapper) AutoDetectLanguageCode() string {
	return w.origin.AutoDetectLanguageCode()
}

// GetSupportedLanguages 直接委托
func (w *Wrapper) GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	return w.origin.GetSupportedLanguages(ctx, uiLanguageCode)
}

// Translate 先尝试本地检测和翻译，剩余内容交给被包装的翻译器
func (w *Wrapper) Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *providers.Requests) (*providers.TranslationResult, error) {
	reqs := providers.Normalize(requests)
	auto := w.origin.AutoDetectLanguageCode()

	effectiveSource := sourceLanguageCode
	if sourceLanguageCode == auto {
		if detected := w.detect(ctx, sourceText, uiLanguageCode); detected != "" {
			effectiveSource = detected
		}
	}

	var localText string
	if reqs.Translation && effectiveSource != auto {
		localText = w.translateLocally(ctx, sourceText, effectiveSource, targetLanguageCode)
	}

	if localText != "" {
		reqs.Translation = false
	}

	if reqs.Any() {
		result, err := w.origin.Translate(ctx, sourceText, effectiveSource, targetLanguageCode, uiLanguageCode, &reqs)
		if err != nil {
			return nil, err
		}

		if effectiveSource != auto {
			result.SourceLanguageCode = effectiveSource
		}
		if localText != "" {
			result.TranslatedText = localText
		}
		return result, nil
	}

	return &providers.TranslationResult{
		TranslatedText:     localText,
		SourceLanguageCode: effectiveSource,
	}, nil
}

// detect 返回检测到的语言在后端语言列表中的代码，无法确定时返回空字符串
func (w *Wrapper) detect(ctx context.Context, text, uiLanguageCode string) string {
	detector, err := w.createDetector(ctx)
	if err != nil {
		w.opts.logger.Debug("本地语言检测不可用，回退到远程翻译器", zap.Error(err))
		return ""
	}

	detections, err := detector.Detect(ctx, text)
	if err != nil {
		w.opts.logger.Warn("本地语言检测失败", zap.Error(err))
		return ""
	}

	// 只有一个候选时是 und
	if len(detections) < 2 {
		return ""
	}

	languages, err := w.sourceLanguages(ctx, uiLanguageCode)
	if err != nil {
		w.opts.logger.Warn("获取语言列表失败，回退到远程检测", zap.Error(err))
		return ""
	}
	code, ok := languages.MatchSource(detections[0].Language)
	if !ok {
		w.opts.logger.Debug("检测到的语言不在语言列表中，回退到远程检测",
			zap.String("detected", detections[0].Language))
		return ""
	}
	return code
}

// sourceLanguages 返回被包装翻译器的语言列表，每个界面语言只获取一次
func (w *Wrapper) sourceLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	w.mu.Lock()
	languages, ok := w.languages[uiLanguageCode]
	w.mu.Unlock()
	if ok {
		return languages, nil
	}

	languages, err := w.origin.GetSupportedLanguages(ctx, uiLanguageCode)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.languages[uiLanguageCode] = languages
	w.mu.Unlock()
	return languages, nil
}

// translateLocally 返回本地翻译结果，不可用时返回空字符串
func (w *Wrapper) translateLocally(ctx context.Context, text, sourceLanguageCode, targetLanguageCode string) string {
	translator, err := w.createTranslator(ctx, sourceLanguageCode, targetLanguageCode)
	if err != nil {
		w.opts.logger.Debug("本地翻译不可用，回退到远程翻译器",
			zap.String("source", sourceLanguageCode),
			zap.String("target", targetLanguageCode),
			zap.Error(err))
		return ""
	}

	translated, err := translator.Translate(ctx, text)
	if err != nil {
		w.opts.logger.Warn("本地翻译失败", zap.Error(err))
		return ""
	}
	return translated
}

func (w *Wrapper) createDetector(ctx context.Context) (Detector, error) {
	return PrepareDetector(ctx, w.opts.detectors, func(loaded float64) {
		w.opts.progress(DetectorCapability, loaded)
	})
}

func (w *Wrapper) createTranslator(ctx context.Context, sourceLanguageCode, targetLanguageCode string) (LocalTranslator, error) {
	capability := fmt.Sprintf("Translator %s:%s", sourceLanguageCode, targetLanguageCode)

	factory := w.opts.translators
	if factory == nil {
		return nil, &providers.CapabilityUnavailableError{Capability: capability}
	}

	availability, err := factory.Availability(ctx, sourceLanguageCode, targetLanguageCode)
	if err != nil {
		return nil, &providers.ProvisioningError{Capability: capability, Err: err}
	}

	switch availability {
	case Available:
	case NeedsProvisioning:
		done := factory.Provision(ctx, sourceLanguageCode, targetLanguageCode, func(loaded float64) {
			w.opts.progress(capability, loaded)
		})
		if err := await(ctx, done); err != nil {
			return nil, &providers.ProvisioningError{Capability: capability, Err: err}
		}
	default:
		return nil, &providers.CapabilityUnavailableError{Capability: capability}
	}

	translator, err := factory.Create(ctx, sourceLanguageCode, targetLanguageCode)
	if err != nil {
		return nil, &providers.ProvisioningError{Capability: capability, Err: err}
	}
	return translator, nil
}
