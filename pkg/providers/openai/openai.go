package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// DefaultLanguages 默认支持的语言代码
var DefaultLanguages = []string{
	"ar", "de", "en", "es", "fr", "hi", "it", "ja", "ko", "nl",
	"pl", "pt", "ru", "sv", "tr", "uk", "vi", "zh-CN", "zh-TW",
}

// undetermined 模型未报告源语言时使用
const undetermined = "und"

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	Model       string   `json:"model"`
	Temperature float32  `json:"temperature"`
	Languages   []string `json:"languages"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       openai.GPT4oMini,
		Temperature: 0.2,
		Languages:   DefaultLanguages,
	}
}

// Provider OpenAI兼容接口的翻译器
type Provider struct {
	config Config
	client *openai.Client
}

// New 创建新的OpenAI提供商
func New(config Config) *Provider {
	if len(config.Languages) == 0 {
		config.Languages = DefaultLanguages
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	if config.APIEndpoint != "" {
		// go-openai 的路径以斜杠开头
		clientConfig.BaseURL = strings.TrimSuffix(config.APIEndpoint, "/")
	}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// UID 获取翻译器标识
func (p *Provider) UID() string {
	return "openai"
}

// FriendlyName 获取显示名称
func (p *Provider) FriendlyName() string {
	return "OpenAI (" + p.config.Model + ")"
}

// AutoDetectLanguageCode 自动检测哨兵
func (p *Provider) AutoDetectLanguageCode() string {
	return providers.DefaultAutoDetectLanguageCode
}

// GetSupportedLanguages 根据配置的语言代码生成本地化名称
func (p *Provider) GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	uiTag := language.Make(uiLanguageCode)
	namer := display.Tags(uiTag)

	targets := make([]providers.Language, 0, len(p.config.Languages))
	for _, code := range p.config.Languages {
		name := ""
		if namer != nil {
			name = namer.Name(language.Make(code))
		}
		if name == "" {
			name = code
		}
		targets = append(targets, providers.Language{
			Code:         code,
			FriendlyName: capitalize(name, uiTag),
		})
	}

	autoName := "Detect language"
	sources := make([]providers.Language, 0, len(targets)+1)
	sources = append(sources, providers.Language{Code: p.AutoDetectLanguageCode(), FriendlyName: autoName})
	sources = append(sources, targets...)

	return &providers.SupportedLanguages{
		SourceLanguages:        sources,
		TargetLanguages:        targets,
		AutoDetectLanguageCode: p.AutoDetectLanguageCode(),
	}, nil
}

// chatResult 模型返回的 JSON
type chatResult struct {
	Translation    string `json:"translation"`
	SourceLanguage string `json:"source_language"`
}

// Translate 执行翻译，只支持 translation 内容，其余内容被忽略
func (p *Provider) Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *providers.Requests) (*providers.TranslationResult, error) {
	if sourceText == "" {
		return nil, providers.ErrEmptyText
	}
	auto := sourceLanguageCode == p.AutoDetectLanguageCode()

	var instruction string
	if auto {
		instruction = fmt.Sprintf("Detect the language of the user's text and translate it to the language with BCP 47 code %q.", targetLanguageCode)
	} else {
		instruction = fmt.Sprintf("Translate the user's text from the language with BCP 47 code %q to the language with BCP 47 code %q.", sourceLanguageCode, targetLanguageCode)
	}

	req := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a professional translator. " + instruction +
					` Reply with a JSON object {"translation": string, "source_language": string} where source_language is the BCP 47 code of the source text.`,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: sourceText,
			},
		},
		Temperature: p.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no translation returned")
	}

	var out chatResult
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}

	source := sourceLanguageCode
	if auto {
		source = out.SourceLanguage
		if source == "" || source == p.AutoDetectLanguageCode() {
			source = undetermined
		}
	}

	return &providers.TranslationResult{
		TranslatedText:     out.Translation,
		SourceLanguageCode: source,
	}, nil
}

// mapError 将 go-openai 的错误映射到统一的错误类型
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		statusErr := providers.NewHTTPStatusError(apiErr.HTTPStatusCode)
		if apiErr.Message != "" {
			statusErr.Message = apiErr.Message
		}
		return statusErr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return providers.NewHTTPStatusError(reqErr.HTTPStatusCode)
	}

	return &providers.NetworkError{Op: "chat completion", Err: err}
}

// capitalize 首字母大写
func capitalize(name string, tag language.Tag) string {
	_, size := utf8.DecodeRuneInString(name)
	return cases.Upper(tag).String(name[:size]) + name[size:]
}
