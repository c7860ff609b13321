package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 POPUP_TRANSLATOR_OPENAI_API_KEY
const EnvPrefix = "POPUP_TRANSLATOR"

// LoadConfig 从文件加载配置，configPath 为空时在家目录和当前目录查找 .popup-translator.yaml
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果配置路径已指定，则直接使用
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".popup-translator")
		v.SetConfigType("yaml")
	}

	// 读取环境变量，嵌套键的点替换为下划线
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，则使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	// 设置存储路径（如果未设置）
	if config.Store.Path == "" {
		config.Store.Path = defaultStorePath(config.Store.Backend)
	}
	if config.Detection.MinConfidence <= 0 {
		config.Detection.MinConfidence = NewDefaultConfig().Detection.MinConfidence
	}

	return &config, nil
}

// ConfigFileUsed 返回实际会读取的配置文件，没有时返回空字符串
func ConfigFileUsed(configPath string) string {
	if configPath != "" {
		return configPath
	}
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".popup-translator.yaml"))
	}
	candidates = append(candidates, ".popup-translator.yaml")
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// validate 验证配置
func validate(config *Config) error {
	switch config.Store.Backend {
	case "json", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported store backend: %s", config.Store.Backend)
	}

	if config.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be between 0 and 1, got %v", config.Detection.MinConfidence)
	}

	if config.Debounce.SourceText < 0 || config.Debounce.Selection < 0 {
		return fmt.Errorf("debounce durations must not be negative")
	}

	return nil
}

// SaveConfig 将配置保存到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, ".popup-translator.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	// 添加所有配置项
	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return err
	}

	// 创建父目录（如果不存在）
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}
