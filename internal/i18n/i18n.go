// Package i18n 界面文本本地化、界面语言和可接受语言查询，以及可靠的语言检测。
//
// 翻译以 gettext .po 文件嵌入二进制，目录结构为
// locales/{lang}/LC_MESSAGES/popup-translator.po，消息 ID 为消息键，
// 位置参数使用 %[1]s 形式。
package i18n

import (
	"context"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice"
)

//go:embed all:locales
var locales embed.FS

// domain gettext 域名
const domain = "popup-translator"

// DefaultMinConfidence 默认的可靠检测置信度阈值
const DefaultMinConfidence = 0.5

// catalogs 内置的翻译目录，第一个为回退语言
var catalogs = []struct {
	tag language.Tag
	dir string
}{
	{language.English, "en"},
	{language.SimplifiedChinese, "zh_CN"},
	{language.Russian, "ru"},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(catalogs))
	for _, c := range catalogs {
		tags = append(tags, c.tag)
	}
	return language.NewMatcher(tags)
}()

// Option 本地化配置选项函数
type Option func(*Localizer)

// WithUILanguage 设置界面语言，空字符串表示从环境变量检测
func WithUILanguage(code string) Option {
	return func(l *Localizer) {
		if code != "" {
			l.uiLanguage = code
		}
	}
}

// WithAcceptLanguages 设置可接受语言列表，按偏好排序
func WithAcceptLanguages(codes []string) Option {
	return func(l *Localizer) {
		if len(codes) > 0 {
			l.acceptLanguages = append([]string(nil), codes...)
		}
	}
}

// WithDetector 设置用于可靠检测的本地检测能力
func WithDetector(factory ondevice.DetectorFactory, minConfidence float64) Option {
	return func(l *Localizer) {
		l.detectors = factory
		if minConfidence > 0 {
			l.minConfidence = minConfidence
		}
	}
}

// WithProgress 设置检测模型准备进度回调
func WithProgress(monitor ondevice.ProgressFunc) Option {
	return func(l *Localizer) {
		l.progress = monitor
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(l *Localizer) {
		l.logger = logger
	}
}

// Localizer 本地化服务
type Localizer struct {
	uiLanguage      string
	acceptLanguages []string

	po       *gotext.Locale
	fallback *gotext.Locale

	detectors     ondevice.DetectorFactory
	minConfidence float64
	progress      ondevice.ProgressFunc

	logger *zap.Logger
}

// New 创建本地化服务
func New(options ...Option) *Localizer {
	l := &Localizer{
		minConfidence: DefaultMinConfidence,
		logger:        zap.NewNop(),
	}
	for _, option := range options {
		option(l)
	}

	if l.uiLanguage == "" {
		l.uiLanguage = detectLanguage()
	}
	if len(l.acceptLanguages) == 0 {
		l.acceptLanguages = detectAcceptLanguages(l.uiLanguage)
	}

	l.fallback = loadLocale(catalogs[0].dir)
	l.po = loadLocale(catalogDir(l.uiLanguage))

	return l
}

func loadLocale(dir string) *gotext.Locale {
	po := gotext.NewLocaleFSWithPath(dir, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	return po
}

// catalogDir 选择与界面语言最匹配的翻译目录
func catalogDir(uiLanguage string) string {
	tag, err := language.Parse(uiLanguage)
	if err != nil {
		return catalogs[0].dir
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return catalogs[0].dir
	}
	return catalogs[index].dir
}

// Message 按键获取消息，substitutions 依次替换 %[1]s、%[2]s ...
// 界面语言没有该消息时使用英文，英文也没有时返回键本身
func (l *Localizer) Message(key string, substitutions ...string) string {
	format := l.po.Get(key)
	if format == "" || format == key {
		format = l.fallback.Get(key)
	}
	if format == "" || format == key {
		return key
	}
	if len(substitutions) == 0 {
		return format
	}

	vars := make([]interface{}, 0, len(substitutions))
	for _, s := range substitutions {
		vars = append(vars, s)
	}
	return fmt.Sprintf(format, vars...)
}

// UILanguage 界面语言代码（BCP 47）
func (l *Localizer) UILanguage() string {
	return l.uiLanguage
}

// AcceptLanguages 可接受语言列表
func (l *Localizer) AcceptLanguages() []string {
	return append([]string(nil), l.acceptLanguages...)
}

// DetectionResult 语言检测结果
type DetectionResult struct {
	IsReliable bool
	Languages  []string
}

// DetectLanguage 检测文本语言。检测能力不可用或失败时返回不可靠的结果
func (l *Localizer) DetectLanguage(ctx context.Context, text string) DetectionResult {
	if l.detectors == nil {
		return DetectionResult{}
	}

	detector, err := ondevice.PrepareDetector(ctx, l.detectors, l.progress)
	if err != nil {
		l.logger.Debug("语言检测不可用", zap.Error(err))
		return DetectionResult{}
	}

	detections, err := detector.Detect(ctx, text)
	if err != nil {
		l.logger.Warn("语言检测失败", zap.Error(err))
		return DetectionResult{}
	}

	result := DetectionResult{Languages: make([]string, 0, len(detections))}
	for _, d := range detections {
		result.Languages = append(result.Languages, d.Language)
	}

	if len(detections) > 1 &&
		detections[0].Language != ondevice.UndeterminedLanguage &&
		detections[0].Confidence >= l.minConfidence {
		result.IsReliable = true
	}

	l.logger.Debug("语言检测",
		zap.Strings("languages", result.Languages),
		zap.Bool("reliable", result.IsReliable))

	return result
}

// localeEnvs gettext 的优先级：LANGUAGE > LC_ALL > LC_MESSAGES > LANG
var localeEnvs = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

// detectLanguage 从环境变量读取界面语言
func detectLanguage() string {
	for _, env := range localeEnvs {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE 可以是冒号分隔的列表，取第一个
		if env == "LANGUAGE" {
			val = strings.SplitN(val, ":", 2)[0]
		}
		if code := normalizeLocale(val); code != "" {
			return code
		}
	}
	return "en"
}

// detectAcceptLanguages 从 LANGUAGE 列表和界面语言生成可接受语言，
// 带地区的代码后面跟随其基础语言
func detectAcceptLanguages(uiLanguage string) []string {
	var candidates []string
	if val := os.Getenv("LANGUAGE"); val != "" {
		candidates = append(candidates, strings.Split(val, ":")...)
	}
	candidates = append(candidates, uiLanguage)

	seen := make(map[string]bool)
	var result []string
	add := func(code string) {
		if code != "" && !seen[code] {
			seen[code] = true
			result = append(result, code)
		}
	}

	for _, candidate := range candidates {
		code := normalizeLocale(candidate)
		add(code)
		if base, _, ok := strings.Cut(code, "-"); ok {
			add(base)
		}
	}
	if len(result) == 0 {
		result = []string{"en"}
	}
	return result
}

// normalizeLocale 将 "ru_RU.UTF-8" 转换为 "ru-RU"，C 和 POSIX 返回空字符串
func normalizeLocale(val string) string {
	// 去掉编码后缀
	if idx := strings.IndexByte(val, '.'); idx >= 0 {
		val = val[:idx]
	}
	// 去掉修饰符（如 @euro）
	if idx := strings.IndexByte(val, '@'); idx >= 0 {
		val = val[:idx]
	}
	if val == "C" || val == "POSIX" || val == "" {
		return ""
	}
	return strings.ReplaceAll(val, "_", "-")
}
