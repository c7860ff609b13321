// Package linguadetect 基于 lingua-go 的本地语言检测能力
package linguadetect

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice"
)

// Config 检测器配置
type Config struct {
	// Languages ISO 639-1 代码，少于两个时使用全部语言
	Languages []string `json:"languages"`

	// MinimumRelativeDistance 传给 lingua 的最小相对距离
	MinimumRelativeDistance float64 `json:"minimum_relative_distance"`
}

// Factory 本地语言检测能力
type Factory struct {
	languages []lingua.Language
	distance  float64

	mu       sync.Mutex
	detector lingua.LanguageDetector
	loading  chan struct{}
	loadErr  error
}

// New 创建检测能力，模型在 Provision 时加载
func New(config Config) (*Factory, error) {
	languages, err := ParseLanguages(config.Languages)
	if err != nil {
		return nil, err
	}
	if len(languages) < 2 {
		languages = lingua.AllLanguages()
	}

	return &Factory{
		languages: languages,
		distance:  config.MinimumRelativeDistance,
	}, nil
}

// ParseLanguages 将 ISO 639-1 代码转换为 lingua 语言
func ParseLanguages(codes []string) ([]lingua.Language, error) {
	byCode := make(map[string]lingua.Language)
	for _, l := range lingua.AllLanguages() {
		byCode[strings.ToLower(l.IsoCode639_1().String())] = l
	}

	languages := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		base := strings.ToLower(strings.SplitN(code, "-", 2)[0])
		l, ok := byCode[base]
		if !ok {
			return nil, fmt.Errorf("unsupported detector language: %s", code)
		}
		languages = append(languages, l)
	}
	return languages, nil
}

// Availability 模型已加载时可用，否则需要准备
func (f *Factory) Availability(ctx context.Context) (ondevice.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.detector != nil {
		return ondevice.Available, nil
	}
	return ondevice.NeedsProvisioning, nil
}

// Provision 在后台加载语言模型，并发调用共享同一次加载
func (f *Factory) Provision(ctx context.Context, monitor ondevice.ProgressFunc) <-chan error {
	done := make(chan error, 1)

	f.mu.Lock()
	if f.detector != nil {
		f.mu.Unlock()
		done <- nil
		close(done)
		return done
	}
	loading := f.loading
	if loading == nil {
		loading = make(chan struct{})
		f.loading = loading
		go f.load(loading, monitor)
	}
	f.mu.Unlock()

	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			done <- ctx.Err()
		case <-loading:
			f.mu.Lock()
			err := f.loadErr
			f.mu.Unlock()
			done <- err
		}
	}()

	return done
}

func (f *Factory) load(loading chan struct{}, monitor ondevice.ProgressFunc) {
	if monitor == nil {
		monitor = func(float64) {}
	}
	monitor(0)

	detector, err := f.build(monitor)

	f.mu.Lock()
	f.detector = detector
	f.loadErr = err
	f.loading = nil
	f.mu.Unlock()

	if err == nil {
		monitor(1)
	}
	close(loading)
}

// build 逐个语言加载模型并报告进度，最后创建检测器。
// lingua 在包级别缓存已加载的模型，最终创建时不再重复加载
func (f *Factory) build(monitor ondevice.ProgressFunc) (detector lingua.LanguageDetector, err error) {
	// lingua 在模型数据损坏时会 panic
	defer func() {
		if r := recover(); r != nil {
			detector = nil
			err = fmt.Errorf("load lingua models: %v", r)
		}
	}()

	total := float64(len(f.languages) + 1)
	for i, l := range f.languages {
		companion := f.languages[0]
		if i == 0 {
			companion = f.languages[1]
		}
		lingua.NewLanguageDetectorBuilder().
			FromLanguages(l, companion).
			WithPreloadedLanguageModels().
			Build()
		monitor(float64(i+1) / total)
	}

	builder := lingua.NewLanguageDetectorBuilder().
		FromLanguages(f.languages...).
		WithPreloadedLanguageModels()
	if f.distance > 0 {
		builder = builder.WithMinimumRelativeDistance(f.distance)
	}
	return builder.Build(), nil
}

// Create 返回检测器，模型未加载时报错
func (f *Factory) Create(ctx context.Context) (ondevice.Detector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.detector == nil {
		return nil, fmt.Errorf("language models not loaded")
	}
	return &Detector{detector: f.detector}, nil
}

// Detector lingua 检测器
type Detector struct {
	detector lingua.LanguageDetector
}

// Detect 返回按置信度降序排列的候选，无法判断时只返回 und
func (d *Detector) Detect(ctx context.Context, text string) ([]ondevice.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, exists := d.detector.DetectLanguageOf(text); !exists {
		return []ondevice.Detection{{Language: ondevice.UndeterminedLanguage, Confidence: 1}}, nil
	}

	values := d.detector.ComputeLanguageConfidenceValues(text)
	detections := make([]ondevice.Detection, 0, len(values))
	for _, v := range values {
		detections = append(detections, ondevice.Detection{
			Language:   strings.ToLower(v.Language().IsoCode639_1().String()),
			Confidence: v.Value(),
		})
	}
	return detections, nil
}
