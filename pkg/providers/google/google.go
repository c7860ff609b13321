package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

const (
	// DefaultEndpoint gtx 接口地址
	DefaultEndpoint = "https://translate.googleapis.com/translate_a"

	clientName = "gtx"
)

// Config Google Translate配置
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider Google Translate提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New 创建新的Google Translate提供商
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.ProxyURL != "" {
		proxyURL, err := url.Parse(config.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}, nil
}

// UID 获取翻译器标识
func (p *Provider) UID() string {
	return "google"
}

// FriendlyName 获取显示名称
func (p *Provider) FriendlyName() string {
	return "Google Translate"
}

// AutoDetectLanguageCode 自动检测哨兵
func (p *Provider) AutoDetectLanguageCode() string {
	return providers.DefaultAutoDetectLanguageCode
}

// GetSupportedLanguages 获取支持的语言
func (p *Provider) GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	q := newQuery()
	q.add("client", clientName)
	q.add("hl", uiLanguageCode)

	var resp LanguagesResponse
	if err := p.get(ctx, "/l", q, &resp); err != nil {
		return nil, err
	}

	tag := language.Make(uiLanguageCode)
	return &providers.SupportedLanguages{
		SourceLanguages:        toLanguages(resp.SourceLanguages, tag),
		TargetLanguages:        toLanguages(resp.TargetLanguages, tag),
		AutoDetectLanguageCode: providers.DefaultAutoDetectLanguageCode,
	}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *providers.Requests) (*providers.TranslationResult, error) {
	if sourceText == "" {
		return nil, providers.ErrEmptyText
	}
	reqs := providers.Normalize(requests)

	q := newQuery()
	q.add("client", clientName)
	q.add("hl", uiLanguageCode)
	q.add("dj", "1")
	q.add("sl", sourceLanguageCode)
	q.add("tl", targetLanguageCode)
	q.add("q", sourceText)
	for _, dt := range dataTypes(reqs) {
		q.add("dt", dt)
	}

	var resp TranslateResponse
	if err := p.get(ctx, "/single", q, &resp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, s := range resp.Sentences {
		text.WriteString(s.Trans)
	}

	result := &providers.TranslationResult{
		TranslatedText:     text.String(),
		SourceLanguageCode: resp.Src,
	}
	if resp.Dict != nil {
		result.Dictionary = make([]providers.DictionaryEntry, 0, len(resp.Dict))
		for _, d := range resp.Dict {
			entry := providers.DictionaryEntry{
				PartOfSpeech: d.Pos,
				Terms:        make([]providers.Term, 0, len(d.Entry)),
			}
			for _, e := range d.Entry {
				entry.Terms = append(entry.Terms, providers.Term{
					Word:               e.Word,
					ReverseTranslation: e.ReverseTranslation,
				})
			}
			result.Dictionary = append(result.Dictionary, entry)
		}
	}

	return result, nil
}

// dataTypes 将请求的内容映射为 dt 参数，顺序固定
func dataTypes(r providers.Requests) []string {
	var dts []string
	if r.Translation {
		dts = append(dts, "t") // 翻译
	}
	if r.AlternateTranslations {
		dts = append(dts, "at") // 备选翻译
	}
	if r.Transcription {
		dts = append(dts, "rm") // 音译
	}
	if r.Dictionary {
		dts = append(dts, "bd") // 词典，仅单词时返回
	}
	if r.Definitions {
		dts = append(dts, "md") // 释义
	}
	if r.Synonyms {
		dts = append(dts, "ss") // 同义词
	}
	if r.Examples {
		dts = append(dts, "ex") // 例句
	}
	return dts
}

// get 执行 GET 请求并解析 JSON
func (p *Provider) get(ctx context.Context, path string, q *query, out interface{}) error {
	endpoint := p.config.APIEndpoint + path + "?" + q.encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// 客户端没有 CookieJar，也不设置 Referer
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &providers.NetworkError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providers.NewHTTPStatusError(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// toLanguages 将代码-名称映射转换为按代码排序的语言列表
func toLanguages(names map[string]string, tag language.Tag) []providers.Language {
	codes := make([]string, 0, len(names))
	for code := range names {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	languages := make([]providers.Language, 0, len(codes))
	for _, code := range codes {
		languages = append(languages, providers.Language{
			Code:         code,
			FriendlyName: toTitleCase(names[code], tag),
		})
	}
	return languages
}

// toTitleCase 首字母大写，其余小写
func toTitleCase(name string, tag language.Tag) string {
	if name == "" {
		return name
	}
	_, size := utf8.DecodeRuneInString(name)
	return cases.Upper(tag).String(name[:size]) + cases.Lower(tag).String(name[size:])
}

// query 保持参数顺序的查询串构造器
type query struct {
	parts []string
}

func newQuery() *query {
	return &query{}
}

func (q *query) add(key, value string) {
	q.parts = append(q.parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
}

func (q *query) encode() string {
	return strings.Join(q.parts, "&")
}

// LanguagesResponse /l 接口响应
type LanguagesResponse struct {
	SourceLanguages map[string]string `json:"sl"`
	TargetLanguages map[string]string `json:"tl"`
}

// TranslateResponse /single 接口响应（dj=1）
type TranslateResponse struct {
	Sentences []struct {
		Trans string `json:"trans"`
	} `json:"sentences"`
	Src  string `json:"src"`
	Dict []struct {
		Pos   string `json:"pos"`
		Entry []struct {
			Word               string   `json:"word"`
			ReverseTranslation []string `json:"reverse_translation"`
		} `json:"entry"`
	} `json:"dict,omitempty"`
}
