package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-popup-translator/internal/config"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/google"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/middleware"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice/linguadetect"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice/phrasebook"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/openai"
)

// 提供商类型
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Option 工厂选项
type Option func(*ProviderFactory)

// WithLogger 设置日志记录器，每个翻译器都包装日志中间件
func WithLogger(logger *zap.Logger) Option {
	return func(f *ProviderFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithProgress 设置本地模型准备进度回调
func WithProgress(progress func(capability string, loaded float64)) Option {
	return func(f *ProviderFactory) {
		f.progress = progress
	}
}

// ProviderFactory 提供商工厂
type ProviderFactory struct {
	config   *config.Config
	logger   *zap.Logger
	progress func(capability string, loaded float64)

	// 本地能力在所有包装器之间共享，模型只加载一次
	detectors   *linguadetect.Factory
	translators *phrasebook.Factory
}

// New 创建新的提供商工厂
func New(cfg *config.Config, opts ...Option) (*ProviderFactory, error) {
	f := &ProviderFactory{
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if cfg.OnDevice.Enabled {
		detectors, err := linguadetect.New(linguadetect.Config{Languages: cfg.OnDevice.DetectorLanguages})
		if err != nil {
			return nil, fmt.Errorf("invalid on-device detector languages: %w", err)
		}
		f.detectors = detectors
		if cfg.OnDevice.PhrasebookDir != "" {
			f.translators = phrasebook.New(cfg.OnDevice.PhrasebookDir)
		}
	}

	return f, nil
}

// Detectors 返回共享的本地语言检测能力，未启用时返回 nil
func (f *ProviderFactory) Detectors() ondevice.DetectorFactory {
	if f.detectors == nil {
		return nil
	}
	return f.detectors
}

// CreateProvider 根据类型创建远程提供商
func (f *ProviderFactory) CreateProvider(providerType string) (providers.Translator, error) {
	switch providerType {
	case ProviderGoogle:
		return f.createGoogleProvider()
	case ProviderOpenAI:
		return f.createOpenAIProvider()
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// createGoogleProvider 创建 Google 翻译提供商
func (f *ProviderFactory) createGoogleProvider() (providers.Translator, error) {
	cfg := google.DefaultConfig()
	if f.config.Google.BaseURL != "" {
		cfg.APIEndpoint = f.config.Google.BaseURL
	}
	if f.config.Google.Timeout > 0 {
		cfg.Timeout = f.config.Google.Timeout
	}
	cfg.ProxyURL = f.config.Google.ProxyURL
	for k, v := range f.config.Google.Headers {
		cfg.Headers[k] = v
	}

	return google.New(cfg)
}

// createOpenAIProvider 创建 OpenAI 兼容提供商
func (f *ProviderFactory) createOpenAIProvider() (providers.Translator, error) {
	if f.config.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key must be set")
	}

	cfg := openai.DefaultConfig()
	cfg.APIKey = f.config.OpenAI.APIKey
	cfg.APIEndpoint = f.config.OpenAI.BaseURL
	if f.config.OpenAI.Model != "" {
		cfg.Model = f.config.OpenAI.Model
	}
	if f.config.OpenAI.Temperature > 0 {
		cfg.Temperature = float32(f.config.OpenAI.Temperature)
	}
	if f.config.OpenAI.Timeout > 0 {
		cfg.Timeout = f.config.OpenAI.Timeout
	}
	if len(f.config.OpenAI.Languages) > 0 {
		cfg.Languages = f.config.OpenAI.Languages
	}

	return openai.New(cfg), nil
}

// wrap 包装本地能力和日志中间件
func (f *ProviderFactory) wrap(translator providers.Translator) []providers.Translator {
	wrapped := []providers.Translator{translator}

	if f.detectors != nil {
		opts := []ondevice.Option{
			ondevice.WithDetector(f.detectors),
			ondevice.WithLogger(f.logger.Named("ondevice")),
		}
		if f.translators != nil {
			opts = append(opts, ondevice.WithTranslator(f.translators))
		}
		if f.progress != nil {
			opts = append(opts, ondevice.WithProgress(f.progress))
		}
		wrapped = append(wrapped, ondevice.New(translator, opts...))
	}

	for i, t := range wrapped {
		wrapped[i] = middleware.NewLoggingMiddleware(t, f.logger.Named("provider"))
	}
	return wrapped
}

// NewRegistry 创建翻译器注册表。
// Google 总是第一个注册，作为未知 uid 的回退；配置了 API 密钥时注册 OpenAI。
// 启用本地能力时每个远程翻译器后面紧跟它的本地优先版本
func (f *ProviderFactory) NewRegistry() (*providers.Registry, error) {
	registry := providers.NewRegistry()

	types := []string{ProviderGoogle}
	if f.config.OpenAI.APIKey != "" {
		types = append(types, ProviderOpenAI)
	}

	for _, providerType := range types {
		translator, err := f.CreateProvider(providerType)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
		}
		for _, t := range f.wrap(translator) {
			if err := registry.Register(t); err != nil {
				return nil, err
			}
		}
	}

	f.logger.Debug("翻译器注册完成", zap.Int("count", registry.Len()))
	return registry, nil
}

// GetSupportedProviders 获取支持的提供商列表
func GetSupportedProviders() []string {
	return []string{ProviderGoogle, ProviderOpenAI}
}
