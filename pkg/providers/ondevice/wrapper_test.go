package ondevice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// fakeOrigin 记录调用参数的远程翻译器
type fakeOrigin struct {
	calls   []originCall
	result  providers.TranslationResult
	err     error
	fetches int
}

type originCall struct {
	source   string
	target   string
	requests providers.Requests
}

func (f *fakeOrigin) UID() string                    { return "fake" }
func (f *fakeOrigin) FriendlyName() string           { return "Fake" }
func (f *fakeOrigin) AutoDetectLanguageCode() string { return "auto" }

func (f *fakeOrigin) GetSupportedLanguages(ctx context.Context, uiLanguageCode string) (*providers.SupportedLanguages, error) {
	f.fetches++
	return &providers.SupportedLanguages{
		SourceLanguages: []providers.Language{
			{Code: "auto", FriendlyName: "Detect language"},
			{Code: "de", FriendlyName: "German"},
			{Code: "en", FriendlyName: "English"},
			{Code: "fr", FriendlyName: "French"},
			{Code: "iw", FriendlyName: "Hebrew"},
			{Code: "zh-CN", FriendlyName: "Chinese (Simplified)"},
		},
		AutoDetectLanguageCode: "auto",
	}, nil
}

func (f *fakeOrigin) Translate(ctx context.Context, sourceText, sourceLanguageCode, targetLanguageCode, uiLanguageCode string, requests *providers.Requests) (*providers.TranslationResult, error) {
	f.calls = append(f.calls, originCall{source: sourceLanguageCode, target: targetLanguageCode, requests: *requests})
	if f.err != nil {
		return nil, f.err
	}
	result := f.result
	return &result, nil
}

type fakeDetector struct {
	detections []Detection
}

func (d fakeDetector) Detect(ctx context.Context, text string) ([]Detection, error) {
	return d.detections, nil
}

type fakeDetectorFactory struct {
	availability Availability
	provisionErr error
	detections   []Detection
	provisioned  bool
}

func (f *fakeDetectorFactory) Availability(ctx context.Context) (Availability, error) {
	return f.availability, nil
}

func (f *fakeDetectorFactory) Provision(ctx context.Context, monitor ProgressFunc) <-chan error {
	f.provisioned = true
	done := make(chan error, 1)
	monitor(1)
	done <- f.provisionErr
	close(done)
	return done
}

func (f *fakeDetectorFactory) Create(ctx context.Context) (Detector, error) {
	return fakeDetector{detections: f.detections}, nil
}

type fakeLocalTranslator struct {
	text string
}

func (t fakeLocalTranslator) Translate(ctx context.Context, text string) (string, error) {
	return t.text, nil
}

type fakeTranslatorFactory struct {
	availability Availability
	text         string
	pairs        []string
}

func (f *fakeTranslatorFactory) Availability(ctx context.Context, source, target string) (Availability, error) {
	f.pairs = append(f.pairs, source+":"+target)
	return f.availability, nil
}

func (f *fakeTranslatorFactory) Provision(ctx context.Context, source, target string, monitor ProgressFunc) <-chan error {
	done := make(chan error)
	close(done)
	return done
}

func (f *fakeTranslatorFactory) Create(ctx context.Context, source, target string) (LocalTranslator, error) {
	return fakeLocalTranslator{text: f.text}, nil
}

func TestIdentityDelegates(t *testing.T) {
	w := New(&fakeOrigin{})
	assert.Equal(t, "ondevice+fake", w.UID())
	assert.Equal(t, "On-device with Fake", w.FriendlyName())
	assert.Equal(t, "auto", w.AutoDetectLanguageCode())
}

func TestNoCapabilitiesDelegatesUnchanged(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "Hello", SourceLanguageCode: "fr"}}
	w := New(origin)

	result, err := w.Translate(context.Background(), "Bonjour", "auto", "en", "en",
		&providers.Requests{Translation: true, Dictionary: true})
	require.NoError(t, err)

	assert.Equal(t, "Hello", result.TranslatedText)
	assert.Equal(t, "fr", result.SourceLanguageCode)
	require.Len(t, origin.calls, 1)
	assert.Equal(t, "auto", origin.calls[0].source)
	assert.Equal(t, providers.Requests{Translation: true, Dictionary: true}, origin.calls[0].requests)
}

func TestDetectorResolvesSource(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "Hello", SourceLanguageCode: "auto"}}
	detectors := &fakeDetectorFactory{
		availability: Available,
		detections:   []Detection{{Language: "fr", Confidence: 0.9}, {Language: "en", Confidence: 0.1}},
	}
	w := New(origin, WithDetector(detectors))

	result, err := w.Translate(context.Background(), "Bonjour", "auto", "en", "en", nil)
	require.NoError(t, err)

	require.Len(t, origin.calls, 1)
	assert.Equal(t, "fr", origin.calls[0].source)
	assert.Equal(t, "fr", result.SourceLanguageCode)
}

func TestDetectorCodeMappedToCatalog(t *testing.T) {
	tests := []struct {
		detected string
		want     string
	}{
		{detected: "zh", want: "zh-CN"},
		{detected: "he", want: "iw"},
	}

	for _, tt := range tests {
		t.Run(tt.detected, func(t *testing.T) {
			origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "Hello", SourceLanguageCode: "auto"}}
			detectors := &fakeDetectorFactory{
				availability: Available,
				detections:   []Detection{{Language: tt.detected, Confidence: 0.9}, {Language: "en", Confidence: 0.1}},
			}
			w := New(origin, WithDetector(detectors))

			result, err := w.Translate(context.Background(), "text", "auto", "en", "en", nil)
			require.NoError(t, err)
			_, err = w.Translate(context.Background(), "text", "auto", "en", "en", nil)
			require.NoError(t, err)

			require.Len(t, origin.calls, 2)
			assert.Equal(t, tt.want, origin.calls[0].source)
			assert.Equal(t, tt.want, result.SourceLanguageCode)
			assert.Equal(t, 1, origin.fetches)
		})
	}
}

func TestDetectorCodeOutsideCatalogIgnored(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "Hello", SourceLanguageCode: "en"}}
	detectors := &fakeDetectorFactory{
		availability: Available,
		detections:   []Detection{{Language: "ja", Confidence: 0.9}, {Language: "en", Confidence: 0.1}},
	}
	w := New(origin, WithDetector(detectors))

	result, err := w.Translate(context.Background(), "text", "auto", "fr", "en", nil)
	require.NoError(t, err)

	assert.Equal(t, "auto", origin.calls[0].source)
	assert.Equal(t, "en", result.SourceLanguageCode)
}

func TestDetectorSingleCandidateIgnored(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "Hello", SourceLanguageCode: "fr"}}
	detectors := &fakeDetectorFactory{
		availability: Available,
		detections:   []Detection{{Language: UndeterminedLanguage, Confidence: 1}},
	}
	w := New(origin, WithDetector(detectors))

	result, err := w.Translate(context.Background(), "...", "auto", "en", "en", nil)
	require.NoError(t, err)

	assert.Equal(t, "auto", origin.calls[0].source)
	assert.Equal(t, "fr", result.SourceLanguageCode)
}

func TestDetectorNotRunForExplicitSource(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "Hello", SourceLanguageCode: "de"}}
	detectors := &fakeDetectorFactory{availability: NeedsProvisioning}
	w := New(origin, WithDetector(detectors))

	_, err := w.Translate(context.Background(), "Hallo", "de", "en", "en", nil)
	require.NoError(t, err)
	assert.False(t, detectors.provisioned)
}

func TestProvisioningFailureFallsBack(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "Hello", SourceLanguageCode: "fr"}}
	detectors := &fakeDetectorFactory{
		availability: NeedsProvisioning,
		provisionErr: errors.New("download failed"),
	}
	var reported []string
	w := New(origin, WithDetector(detectors), WithProgress(func(capability string, loaded float64) {
		reported = append(reported, capability)
	}))

	result, err := w.Translate(context.Background(), "Bonjour", "auto", "en", "en", nil)
	require.NoError(t, err)

	assert.True(t, detectors.provisioned)
	assert.Equal(t, []string{"LanguageDetector"}, reported)
	assert.Equal(t, "auto", origin.calls[0].source)
	assert.Equal(t, "fr", result.SourceLanguageCode)
}

func TestLocalTranslationSatisfiesTranslationFacet(t *testing.T) {
	origin := &fakeOrigin{}
	translators := &fakeTranslatorFactory{availability: Available, text: "chat"}
	w := New(origin, WithTranslator(translators))

	result, err := w.Translate(context.Background(), "cat", "en", "fr", "en", nil)
	require.NoError(t, err)

	assert.Empty(t, origin.calls)
	assert.Equal(t, "chat", result.TranslatedText)
	assert.Equal(t, "en", result.SourceLanguageCode)
	assert.Equal(t, []string{"en:fr"}, translators.pairs)
}

func TestRemainingFacetsFallThrough(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{
		TranslatedText:     "remote",
		SourceLanguageCode: "en",
		Dictionary:         []providers.DictionaryEntry{{PartOfSpeech: "noun"}},
	}}
	detectors := &fakeDetectorFactory{
		availability: Available,
		detections:   []Detection{{Language: "en", Confidence: 0.8}, {Language: "fr", Confidence: 0.2}},
	}
	translators := &fakeTranslatorFactory{availability: NeedsProvisioning, text: "chat"}
	w := New(origin, WithDetector(detectors), WithTranslator(translators))

	requests := &providers.Requests{Translation: true, Dictionary: true}
	result, err := w.Translate(context.Background(), "cat", "auto", "fr", "en", requests)
	require.NoError(t, err)

	// 调用方的请求不被修改
	assert.True(t, requests.Translation)

	require.Len(t, origin.calls, 1)
	assert.Equal(t, "en", origin.calls[0].source)
	assert.Equal(t, providers.Requests{Dictionary: true}, origin.calls[0].requests)
	assert.Equal(t, "chat", result.TranslatedText)
	assert.Equal(t, "en", result.SourceLanguageCode)
	assert.Len(t, result.Dictionary, 1)
}

func TestEmptyLocalTranslationNotSatisfied(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "chien", SourceLanguageCode: "en"}}
	translators := &fakeTranslatorFactory{availability: Available, text: ""}
	w := New(origin, WithTranslator(translators))

	result, err := w.Translate(context.Background(), "dog", "en", "fr", "en", nil)
	require.NoError(t, err)

	require.Len(t, origin.calls, 1)
	assert.True(t, origin.calls[0].requests.Translation)
	assert.Equal(t, "chien", result.TranslatedText)
}

func TestUnavailableTranslatorSkipped(t *testing.T) {
	origin := &fakeOrigin{result: providers.TranslationResult{TranslatedText: "chien", SourceLanguageCode: "en"}}
	translators := &fakeTranslatorFactory{availability: Unavailable, text: "never"}
	w := New(origin, WithTranslator(translators))

	result, err := w.Translate(context.Background(), "dog", "en", "fr", "en", nil)
	require.NoError(t, err)
	assert.Equal(t, "chien", result.TranslatedText)
}

func TestOriginErrorPropagates(t *testing.T) {
	origin := &fakeOrigin{err: providers.NewHTTPStatusError(414)}
	w := New(origin)

	_, err := w.Translate(context.Background(), "x", "en", "fr", "en", nil)
	require.Error(t, err)
	assert.Equal(t, 414, providers.StatusCode(err))
}
