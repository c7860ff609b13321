package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// LoggingMiddleware 记录每次调用耗时和结果的翻译器装饰器
type LoggingMiddleware struct {
	next   providers.Translator
	logger *zap.Logger
}

// NewLoggingMiddleware 创建日志中间件
func NewLoggingMiddleware(next providers.Translator, logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		next:   next,
		logger: logger.With(zap.String("translator", next.UID())),
	}
}

// Unwrap 返回被装饰的翻译器
func (m *LoggingMiddleware) Unwrap() providers.Translator {
	return m.next
}

// UID 与被装饰的翻译器一致
func (m *LoggingMiddleware) UID() string {
	return m.next.UID()
}

// FriendlyName 与被装饰的翻译器一致
func (m *LoggingMiddleware) FriendlyName() string {
	return m.next.FriendlyName()
}

// AutoDetectLanguageCode 与被装饰的翻译器一致
func (m *LoggingMiddleware) AutoDetectLanguageCode() string {
	return m.next.AutoDetectLanguageCode()
}

// GetSupportedLanguages 带日志的语言列表获取
func (m *LoggingMiddleware) GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	startTime := time.Now()

	languages, err := m.next.GetSupportedLanguages(ctx, uiLanguageCode)

	fields := []zap.Field{
		zap.String("ui", uiLanguageCode),
		zap.Duration("latency", time.Since(startTime)),
	}
	if err != nil {
		m.logger.Warn("获取语言列表失败", append(fields, zap.Error(err))...)
		return nil, err
	}

	m.logger.Debug("获取语言列表",
		append(fields,
			zap.Int("sources", len(languages.SourceLanguages)),
			zap.Int("targets", len(languages.TargetLanguages)))...)
	return languages, nil
}

// Translate 带日志的翻译
func (m *LoggingMiddleware) Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *providers.Requests) (*providers.TranslationResult, error) {
	startTime := time.Now()

	result, err := m.next.Translate(ctx, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode, requests)

	fields := []zap.Field{
		zap.String("source", sourceLanguageCode),
		zap.String("target", targetLanguageCode),
		zap.Int("chars", len([]rune(sourceText))),
		zap.Any("requests", providers.Normalize(requests)),
		zap.Duration("latency", time.Since(startTime)),
	}
	if err != nil {
		if code := providers.StatusCode(err); code != 0 {
			fields = append(fields, zap.Int("status", code))
		}
		m.logger.Warn("翻译失败", append(fields, zap.Error(err))...)
		return nil, err
	}

	m.logger.Debug("翻译完成",
		append(fields,
			zap.String("detected", result.SourceLanguageCode),
			zap.Int("dictionary", len(result.Dictionary)))...)
	return result, nil
}
