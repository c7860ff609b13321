package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-popup-translator/internal/config"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

func uids(registry *providers.Registry) []string {
	var out []string
	for _, t := range registry.List() {
		out = append(out, t.UID())
	}
	return out
}

func TestNewRegistryDefault(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.OnDevice.PhrasebookDir = t.TempDir()

	f, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, f.Detectors())

	registry, err := f.NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"google", "ondevice+google"}, uids(registry))

	// 未知 uid 回退到 Google
	fallback, err := registry.Resolve("missing")
	require.NoError(t, err)
	assert.Equal(t, "google", fallback.UID())
}

func TestNewRegistryWithOpenAI(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.OnDevice.Enabled = false
	cfg.OpenAI.APIKey = "sk-test"

	f, err := New(cfg)
	require.NoError(t, err)
	assert.Nil(t, f.Detectors())

	registry, err := f.NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"google", "openai"}, uids(registry))

	openai, err := registry.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "auto", openai.AutoDetectLanguageCode())
}

func TestCreateProvider(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.OnDevice.Enabled = false
	f, err := New(cfg)
	require.NoError(t, err)

	_, err = f.CreateProvider("openai")
	assert.Error(t, err, "openai requires an api key")

	_, err = f.CreateProvider("deepl")
	assert.Error(t, err)

	cfg.Google.ProxyURL = "://bad"
	_, err = f.CreateProvider("google")
	assert.Error(t, err)
}

func TestNewInvalidDetectorLanguages(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.OnDevice.DetectorLanguages = []string{"en", "not-a-language"}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestGetSupportedProviders(t *testing.T) {
	assert.Equal(t, []string{"google", "openai"}, GetSupportedProviders())
}
