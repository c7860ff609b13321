package providers

import (
	"context"
	"time"

	"golang.org/x/text/language"
)

// DefaultAutoDetectLanguageCode 后端没有提供自动检测代码时使用的哨兵值
const DefaultAutoDetectLanguageCode = "auto"

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时
	Timeout time.Duration `json:"timeout"`

	// 代理设置
	ProxyURL string `json:"proxy_url,omitempty"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout: 15 * time.Second,
		Headers: make(map[string]string),
	}
}

// Translator 翻译器能力接口
type Translator interface {
	// UID 翻译器唯一标识
	UID() string

	// FriendlyName 显示名称
	FriendlyName() string

	// AutoDetectLanguageCode 自动检测哨兵代码，只能作为源语言使用
	AutoDetectLanguageCode() string

	// GetSupportedLanguages 获取支持的源语言和目标语言
	GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*SupportedLanguages, error)

	// Translate 执行翻译。sourceLanguageCode 可以是自动检测哨兵，
	// 此时返回结果中的 SourceLanguageCode 为实际检测到的语言。
	// requests 为 nil 时等价于只请求 translation。
	Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *Requests) (*TranslationResult, error)
}

// Language 语言信息
type Language struct {
	Code         string `json:"code"`
	FriendlyName string `json:"friendlyName"`
}

// SupportedLanguages 支持的语言列表
type SupportedLanguages struct {
	SourceLanguages        []Language `json:"sourceLanguages"`
	TargetLanguages        []Language `json:"targetLanguages"`
	AutoDetectLanguageCode string     `json:"autoDetectLanguageCode"`
}

// FindSource 按代码查找源语言
func (s *SupportedLanguages) FindSource(code string) (Language, bool) {
	return findLanguage(s.SourceLanguages, code)
}

// FindTarget 按代码查找目标语言
func (s *SupportedLanguages) FindTarget(code string) (Language, bool) {
	return findLanguage(s.TargetLanguages, code)
}

// MatchSource 将检测器给出的代码对应到源语言列表中最接近的代码，
// 例如 zh → zh-CN、he → iw。没有足够接近的语言时返回 false
func (s *SupportedLanguages) MatchSource(code string) (string, bool) {
	if code == "" || code == s.AutoDetectLanguageCode {
		return "", false
	}
	if _, ok := s.FindSource(code); ok {
		return code, true
	}

	want, err := language.Parse(code)
	if err != nil {
		return "", false
	}

	codes := make([]string, 0, len(s.SourceLanguages))
	tags := make([]language.Tag, 0, len(s.SourceLanguages))
	for _, l := range s.SourceLanguages {
		if l.Code == s.AutoDetectLanguageCode {
			continue
		}
		tag, err := language.Parse(l.Code)
		if err != nil {
			continue
		}
		codes = append(codes, l.Code)
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return "", false
	}

	_, index, confidence := language.NewMatcher(tags).Match(want)
	if confidence < language.High {
		return "", false
	}
	return codes[index], true
}

func findLanguage(languages []Language, code string) (Language, bool) {
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Requests 请求的翻译内容（facet），未设置的项不获取
type Requests struct {
	Translation           bool `json:"translation,omitempty"`
	AlternateTranslations bool `json:"alternateTranslations,omitempty"`
	Transcription         bool `json:"transcription,omitempty"`
	Dictionary            bool `json:"dictionary,omitempty"`
	Definitions           bool `json:"definitions,omitempty"`
	Synonyms              bool `json:"synonyms,omitempty"`
	Examples              bool `json:"examples,omitempty"`
}

// Any 是否请求了任意一项内容
func (r Requests) Any() bool {
	return r.Translation ||
		r.AlternateTranslations ||
		r.Transcription ||
		r.Dictionary ||
		r.Definitions ||
		r.Synonyms ||
		r.Examples
}

// Normalize 返回请求的副本，nil 视为只请求翻译
func Normalize(requests *Requests) Requests {
	if requests == nil {
		return Requests{Translation: true}
	}
	return *requests
}

// TranslationResult 翻译结果
type TranslationResult struct {
	TranslatedText     string            `json:"translatedText"`
	SourceLanguageCode string            `json:"sourceLanguageCode"`
	Dictionary         []DictionaryEntry `json:"dictionary,omitempty"`
}

// DictionaryEntry 词典条目
type DictionaryEntry struct {
	PartOfSpeech string `json:"partOfSpeech,omitempty"`
	Terms        []Term `json:"terms"`
}

// Term 词条
type Term struct {
	Word               string   `json:"word"`
	ReverseTranslation []string `json:"reverseTranslation"`
}
