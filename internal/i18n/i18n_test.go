package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	for _, env := range localeEnvs {
		t.Setenv(env, "")
	}
}

func TestDetectLanguage(t *testing.T) {
	t.Run("LANGUAGE has highest priority", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")
		assert.Equal(t, "ru-RU", detectLanguage())
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")
		assert.Equal(t, "fr-FR", detectLanguage())
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		assert.Equal(t, "en", detectLanguage())
	})
}

func TestDetectAcceptLanguages(t *testing.T) {
	clearLocaleEnv(t)
	t.Setenv("LANGUAGE", "de_DE:fr")

	assert.Equal(t, []string{"de-DE", "de", "fr", "en-US", "en"}, detectAcceptLanguages("en-US"))
}

func TestMessage(t *testing.T) {
	en := New(WithUILanguage("en-US"), WithAcceptLanguages([]string{"en"}))
	assert.Equal(t, "en-US", en.UILanguage())
	assert.Equal(t, "Too many requests. Please try again later.", en.Message("errorTooManyRequests"))
	assert.Equal(t, "French - detected", en.Message("detectedLanguage", "French"))
	assert.Equal(t, "missingKey", en.Message("missingKey"))

	zh := New(WithUILanguage("zh-CN"))
	assert.Equal(t, "文本过长。", zh.Message("errorUriTooLong"))
	assert.Equal(t, "法语（检测到的语言）", zh.Message("detectedLanguage", "法语"))

	ru := New(WithUILanguage("ru"))
	assert.Equal(t, "Неизвестная ошибка.", ru.Message("errorUnknown"))

	// 没有对应目录时使用英文
	ja := New(WithUILanguage("ja"))
	assert.Equal(t, "Unknown error.", ja.Message("errorUnknown"))
}

func TestAcceptLanguagesCopy(t *testing.T) {
	l := New(WithUILanguage("en"), WithAcceptLanguages([]string{"en", "ru"}))
	langs := l.AcceptLanguages()
	langs[0] = "xx"
	assert.Equal(t, []string{"en", "ru"}, l.AcceptLanguages())
}

type stubDetector struct {
	detections []ondevice.Detection
}

func (d stubDetector) Detect(ctx context.Context, text string) ([]ondevice.Detection, error) {
	return d.detections, nil
}

type stubDetectorFactory struct {
	availability ondevice.Availability
	detections   []ondevice.Detection
}

func (f stubDetectorFactory) Availability(ctx context.Context) (ondevice.Availability, error) {
	return f.availability, nil
}

func (f stubDetectorFactory) Provision(ctx context.Context, monitor ondevice.ProgressFunc) <-chan error {
	done := make(chan error)
	close(done)
	return done
}

func (f stubDetectorFactory) Create(ctx context.Context) (ondevice.Detector, error) {
	return stubDetector{detections: f.detections}, nil
}

func TestDetectLanguageReliability(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		factory    ondevice.DetectorFactory
		reliable   bool
		firstMatch string
	}{
		{
			name:     "no detector",
			factory:  nil,
			reliable: false,
		},
		{
			name: "confident",
			factory: stubDetectorFactory{
				availability: ondevice.Available,
				detections:   []ondevice.Detection{{Language: "fr", Confidence: 0.9}, {Language: "en", Confidence: 0.1}},
			},
			reliable:   true,
			firstMatch: "fr",
		},
		{
			name: "below threshold",
			factory: stubDetectorFactory{
				availability: ondevice.Available,
				detections:   []ondevice.Detection{{Language: "fr", Confidence: 0.4}, {Language: "en", Confidence: 0.35}},
			},
			reliable:   false,
			firstMatch: "fr",
		},
		{
			name: "undetermined",
			factory: stubDetectorFactory{
				availability: ondevice.NeedsProvisioning,
				detections:   []ondevice.Detection{{Language: ondevice.UndeterminedLanguage, Confidence: 1}},
			},
			reliable:   false,
			firstMatch: ondevice.UndeterminedLanguage,
		},
		{
			name:     "unavailable",
			factory:  stubDetectorFactory{availability: ondevice.Unavailable},
			reliable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(WithUILanguage("en"), WithDetector(tt.factory, 0.5))
			result := l.DetectLanguage(ctx, "Bonjour tout le monde")
			assert.Equal(t, tt.reliable, result.IsReliable)
			if tt.firstMatch != "" {
				require.NotEmpty(t, result.Languages)
				assert.Equal(t, tt.firstMatch, result.Languages[0])
			}
		})
	}
}
