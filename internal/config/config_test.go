package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.Translator)
	assert.Equal(t, "json", cfg.Store.Backend)
	assert.Equal(t, "store.json", filepath.Base(cfg.Store.Path))
	assert.Equal(t, 15*time.Second, cfg.Google.Timeout)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.True(t, cfg.OnDevice.Enabled)
	assert.Equal(t, 0.5, cfg.Detection.MinConfidence)
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce.SourceText)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce.Selection)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
translator: openai
ui_language: ru
accept_languages: [ru, de]
store:
  backend: sqlite
openai:
  api_key: sk-test
  languages: [fr, de]
  timeout: 5s
on_device:
  enabled: false
  detector_languages: [en, ru]
detection:
  min_confidence: 0.8
debounce:
  source_text: 500ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Translator)
	assert.Equal(t, "ru", cfg.UILanguage)
	assert.Equal(t, []string{"ru", "de"}, cfg.AcceptLanguages)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "store.db", filepath.Base(cfg.Store.Path))
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, []string{"fr", "de"}, cfg.OpenAI.Languages)
	assert.Equal(t, 5*time.Second, cfg.OpenAI.Timeout)
	assert.False(t, cfg.OnDevice.Enabled)
	assert.Equal(t, []string{"en", "ru"}, cfg.OnDevice.DetectorLanguages)
	assert.Equal(t, 0.8, cfg.Detection.MinConfidence)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce.SourceText)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("POPUP_TRANSLATOR_TRANSLATOR", "openai")
	t.Setenv("POPUP_TRANSLATOR_OPENAI_API_KEY", "sk-env")
	t.Setenv("POPUP_TRANSLATOR_STORE_BACKEND", "memory")

	cfg, err := LoadConfig(writeConfig(t, "translator: google\n"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Translator)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "store:\n  backend: redis\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "detection:\n  min_confidence: 2\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "translator: [unclosed\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewDefaultConfig()
	cfg.Translator = "openai"
	cfg.OpenAI.Languages = []string{"ja"}
	cfg.Debounce.SourceText = time.Second
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.Translator)
	assert.Equal(t, []string{"ja"}, loaded.OpenAI.Languages)
	assert.Equal(t, time.Second, loaded.Debounce.SourceText)
	assert.Equal(t, cfg.Store.Path, loaded.Store.Path)
}

func TestConfigFileUsed(t *testing.T) {
	assert.Equal(t, "explicit.yaml", ConfigFileUsed("explicit.yaml"))
}
