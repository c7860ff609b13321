package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-popup-translator/internal/config"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// echoTranslator 译文为 "[目标语言] 原文"，自动检测总是得到英语
type echoTranslator struct {
	mu  sync.Mutex
	err error
}

func (e *echoTranslator) UID() string                    { return "echo" }
func (e *echoTranslator) FriendlyName() string           { return "Echo" }
func (e *echoTranslator) AutoDetectLanguageCode() string { return "auto" }

func (e *echoTranslator) GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	list := []providers.Language{
		{Code: "de", FriendlyName: "German"},
		{Code: "en", FriendlyName: "English"},
		{Code: "fr", FriendlyName: "French"},
	}
	return &providers.SupportedLanguages{
		SourceLanguages:        append([]providers.Language{{Code: "auto", FriendlyName: "Detect language"}}, list...),
		TargetLanguages:        list,
		AutoDetectLanguageCode: "auto",
	}, nil
}

func (e *echoTranslator) Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *providers.Requests) (*providers.TranslationResult, error) {
	e.mu.Lock()
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	source := sourceLanguageCode
	if source == "auto" {
		source = "en"
	}
	return &providers.TranslationResult{
		TranslatedText:     "[" + targetLanguageCode + "] " + sourceText,
		SourceLanguageCode: source,
	}, nil
}

func (e *echoTranslator) fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

type testEnv struct {
	deps       *dependencies
	translator *echoTranslator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	translator := &echoTranslator{}
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(translator))

	cfg := config.NewDefaultConfig()
	cfg.OnDevice.Enabled = false
	cfg.AcceptLanguages = []string{"en"}
	cfg.Store.Backend = store.BackendMemory

	return &testEnv{
		deps: &dependencies{
			config:   cfg,
			store:    store.NewMemoryStore(),
			registry: registry,
		},
		translator: translator,
	}
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand("1.0.0", "abc123", "2024-01-01", e.deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--ui-language", "en", "--no-color"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) get(t *testing.T, key string) string {
	t.Helper()
	value, err := store.GetString(context.Background(), e.deps.store, key)
	require.NoError(t, err)
	return value
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0 (commit abc123, built 2024-01-01)")
}

func TestTranslateWithDetection(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "to", "German")
	require.NoError(t, err)
	assert.Contains(t, out, "German (de)")

	out, err = env.run(t, "", "translate", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "English - detected → German")
	assert.Contains(t, out, "[de] hello")

	assert.Equal(t, "hello", env.get(t, store.KeySourceText))
	assert.Equal(t, "en", env.get(t, store.KeyDetectedLanguageCode))
}

func TestRootTranslatesArgumentsAndStdin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "to", "fr")
	require.NoError(t, err)

	out, err := env.run(t, "", "good", "morning")
	require.NoError(t, err)
	assert.Contains(t, out, "[fr] good morning")

	out, err = env.run(t, "  from stdin \n", "translate")
	require.NoError(t, err)
	assert.Contains(t, out, "[fr] from stdin")
}

func TestTranslateErrorIsRendered(t *testing.T) {
	env := newTestEnv(t)
	env.translator.fail(providers.NewHTTPStatusError(429))

	out, err := env.run(t, "", "translate", "hello")
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "429 Too many requests. Please try again later.")
	assert.Equal(t, "", env.get(t, store.KeySourceText))
}

func TestSwapAndReverse(t *testing.T) {
	env := newTestEnv(t)

	// 还没有检测结果时不能交换
	out, err := env.run(t, "", "swap")
	require.Error(t, err)
	assert.Contains(t, out, "no detected language")

	_, err = env.run(t, "", "to", "de")
	require.NoError(t, err)
	_, err = env.run(t, "", "translate", "hello")
	require.NoError(t, err)

	out, err = env.run(t, "", "reverse", "on")
	require.NoError(t, err)
	assert.Contains(t, out, "on")
	assert.Contains(t, out, "Reverse translation")
	assert.Contains(t, out, "[en] [de] hello")

	out, err = env.run(t, "", "reverse")
	require.NoError(t, err)
	assert.Contains(t, out, "on")

	out, err = env.run(t, "", "swap")
	require.NoError(t, err)
	assert.Contains(t, out, "German → English")
	assert.Equal(t, "de", env.get(t, store.KeySourceLangCode))
	assert.Equal(t, "en", env.get(t, store.KeyTargetLangCode))

	_, err = env.run(t, "", "reverse", "maybe")
	assert.Error(t, err)
}

func TestSelectThenShow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "to", "de")
	require.NoError(t, err)
	_, err = env.run(t, "", "translate", "first")
	require.NoError(t, err)

	_, err = env.run(t, "", "select", "  Bonjour  ")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", env.get(t, store.KeySelectedText))

	out, err := env.run(t, "", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[de] Bonjour")
	assert.Contains(t, out, "Previous text: first")

	// 选中文本已翻译，再次显示时使用保存的结果
	out, err = env.run(t, "", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[de] Bonjour")
	assert.NotContains(t, out, "Previous text")
}

func TestShowEmpty(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter text")
}

func TestLanguagesAndTranslator(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "Detect language")
	assert.Contains(t, out, "French")

	out, err = env.run(t, "", "translator", "unknown")
	require.NoError(t, err)
	assert.Contains(t, out, "* echo")
	assert.Equal(t, "echo", env.get(t, store.KeyTranslatorUID))

	out, err = env.run(t, "", "from", "nope-language")
	require.Error(t, err)
	assert.Contains(t, out, "language not found")
}

func TestInteractiveSession(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, ":to German\nhello\n:help\n:quit\nignored\n", "interactive")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter text")
	assert.Contains(t, out, "→ German")
	assert.Contains(t, out, "[de] hello")
	assert.Contains(t, out, ":swap")
	assert.NotContains(t, out, "ignored")
}

func TestInteractiveManual(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "to", "fr")
	require.NoError(t, err)

	out, err := env.run(t, "line one\nline two\n:translate\n", "interactive", "--manual")
	require.NoError(t, err)
	assert.Contains(t, out, "[fr] line one\nline two")
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "to", "de")
	require.NoError(t, err)

	out, err := env.run(t, "n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset all settings?")
	assert.Equal(t, "de", env.get(t, store.KeyTargetLangCode))

	out, err = env.run(t, "y\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "All settings have been reset.")
	assert.Equal(t, "", env.get(t, store.KeyTargetLangCode))

	_, err = env.run(t, "", "to", "de")
	require.NoError(t, err)
	_, err = env.run(t, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "", env.get(t, store.KeyTargetLangCode))
}

func TestPageCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "page", "https://example.com/a?b=c")
	require.NoError(t, err)
	assert.Contains(t, out, "https://translate.google.com/translate?hl=en&sl=auto&tl=en&u=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc")

	_, err = env.run(t, "", "to", "de")
	require.NoError(t, err)
	out, err = env.run(t, "", "page", "http://example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "&tl=de&")

	_, err = env.run(t, "", "page", "ftp://example.com")
	assert.ErrorIs(t, err, ErrUnsupportedPageURL)
}

func TestPageTranslationURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "https",
			url:  "https://example.com/",
			want: "https://translate.google.com/translate?hl=ru&sl=auto&tl=fr&u=https%3A%2F%2Fexample.com%2F",
		},
		{name: "file", url: "file:///etc/passwd", wantErr: true},
		{name: "no scheme", url: "example.com", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PageTranslationURL(tt.url, "fr", "ru")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedPageURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "store.backend")
	assert.Contains(t, out, "memory")
	assert.Contains(t, out, "(未设置)")

	path := filepath.Join(t.TempDir(), "popup.yaml")
	out, err = env.run(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = os.Stat(path)
	require.NoError(t, err)
	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "google", loaded.Translator)
}

func TestIsReported(t *testing.T) {
	assert.False(t, IsReported(assert.AnError))
	assert.True(t, IsReported(&reportedError{err: assert.AnError}))
	assert.ErrorIs(t, &reportedError{err: assert.AnError}, assert.AnError)
}
