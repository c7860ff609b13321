package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// GoogleConfig Google 翻译后端配置
type GoogleConfig struct {
	BaseURL  string            `mapstructure:"base_url"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	ProxyURL string            `mapstructure:"proxy_url"`
	Headers  map[string]string `mapstructure:"headers"`
}

// OpenAIConfig OpenAI 兼容后端配置，APIKey 为空时不注册该后端
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Languages   []string      `mapstructure:"languages"` // 目标语言代码
}

// OnDeviceConfig 本地能力配置
type OnDeviceConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	PhrasebookDir     string   `mapstructure:"phrasebook_dir"`     // 本地短语表目录
	DetectorLanguages []string `mapstructure:"detector_languages"` // 本地检测的候选语言，为空时使用全部语言
}

// DetectionConfig 界面语言检测配置
type DetectionConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"` // 可靠检测的最低置信度
}

// DebounceConfig 防抖配置
type DebounceConfig struct {
	SourceText time.Duration `mapstructure:"source_text"` // 输入文本保存前的静默时间
	Selection  time.Duration `mapstructure:"selection"`   // 选中文本写入前的静默时间
}

// Config 保存弹出翻译器的所有配置
type Config struct {
	Translator      string          `mapstructure:"translator"`       // 默认翻译器 uid
	UILanguage      string          `mapstructure:"ui_language"`      // 界面语言，为空时从环境变量检测
	AcceptLanguages []string        `mapstructure:"accept_languages"` // 可接受语言，为空时从环境变量检测
	Debug           bool            `mapstructure:"debug"`
	NoColor         bool            `mapstructure:"no_color"`
	Store           store.Config    `mapstructure:"store"`
	Google          GoogleConfig    `mapstructure:"google"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	OnDevice        OnDeviceConfig  `mapstructure:"on_device"`
	Detection       DetectionConfig `mapstructure:"detection"`
	Debounce        DebounceConfig  `mapstructure:"debounce"`
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	dataDir := getDefaultDataDir()

	return &Config{
		Translator: "google",
		Store: store.Config{
			Backend: store.BackendJSON,
			Path:    filepath.Join(dataDir, "store.json"),
		},
		Google: GoogleConfig{
			BaseURL: "https://translate.googleapis.com/translate_a",
			Timeout: 15 * time.Second,
			Headers: make(map[string]string),
		},
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		OnDevice: OnDeviceConfig{
			Enabled:       true,
			PhrasebookDir: filepath.Join(dataDir, "phrasebooks"),
		},
		Detection: DetectionConfig{
			MinConfidence: 0.5,
		},
		Debounce: DebounceConfig{
			SourceText: 200 * time.Millisecond,
			Selection:  100 * time.Millisecond,
		},
	}
}

// getDefaultDataDir 获取默认数据目录
func getDefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(homeDir, ".popup-translator")
	}

	// 最后的兜底方案
	return "./.popup-translator"
}

// defaultStorePath 后端对应的默认存储文件
func defaultStorePath(backend string) string {
	if backend == store.BackendSQLite {
		return filepath.Join(getDefaultDataDir(), "store.db")
	}
	return filepath.Join(getDefaultDataDir(), "store.json")
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	defaults := NewDefaultConfig()

	v.SetDefault("translator", defaults.Translator)
	v.SetDefault("ui_language", "")
	v.SetDefault("accept_languages", []string{})
	v.SetDefault("debug", false)
	v.SetDefault("no_color", false)

	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.path", "")

	v.SetDefault("google.base_url", defaults.Google.BaseURL)
	v.SetDefault("google.timeout", defaults.Google.Timeout)
	v.SetDefault("google.proxy_url", "")
	v.SetDefault("google.headers", map[string]string{})

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", defaults.OpenAI.BaseURL)
	v.SetDefault("openai.model", defaults.OpenAI.Model)
	v.SetDefault("openai.temperature", defaults.OpenAI.Temperature)
	v.SetDefault("openai.timeout", defaults.OpenAI.Timeout)
	v.SetDefault("openai.languages", []string{})

	v.SetDefault("on_device.enabled", defaults.OnDevice.Enabled)
	v.SetDefault("on_device.phrasebook_dir", defaults.OnDevice.PhrasebookDir)
	v.SetDefault("on_device.detector_languages", []string{})

	v.SetDefault("detection.min_confidence", defaults.Detection.MinConfidence)

	v.SetDefault("debounce.source_text", defaults.Debounce.SourceText)
	v.SetDefault("debounce.selection", defaults.Debounce.Selection)
}

// structToMap 将结构体转换为map
func structToMap(config *Config) map[string]interface{} {
	return map[string]interface{}{
		"translator":       config.Translator,
		"ui_language":      config.UILanguage,
		"accept_languages": config.AcceptLanguages,
		"debug":            config.Debug,
		"no_color":         config.NoColor,
		"store": map[string]interface{}{
			"backend": config.Store.Backend,
			"path":    config.Store.Path,
		},
		"google": map[string]interface{}{
			"base_url":  config.Google.BaseURL,
			"timeout":   config.Google.Timeout.String(),
			"proxy_url": config.Google.ProxyURL,
			"headers":   config.Google.Headers,
		},
		"openai": map[string]interface{}{
			"api_key":     config.OpenAI.APIKey,
			"base_url":    config.OpenAI.BaseURL,
			"model":       config.OpenAI.Model,
			"temperature": config.OpenAI.Temperature,
			"timeout":     config.OpenAI.Timeout.String(),
			"languages":   config.OpenAI.Languages,
		},
		"on_device": map[string]interface{}{
			"enabled":            config.OnDevice.Enabled,
			"phrasebook_dir":     config.OnDevice.PhrasebookDir,
			"detector_languages": config.OnDevice.DetectorLanguages,
		},
		"detection": map[string]interface{}{
			"min_confidence": config.Detection.MinConfidence,
		},
		"debounce": map[string]interface{}{
			"source_text": config.Debounce.SourceText.String(),
			"selection":   config.Debounce.Selection.String(),
		},
	}
}
