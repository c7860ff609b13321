package ondevice

import (
	"context"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// DetectorCapability 语言检测能力名称
const DetectorCapability = "LanguageDetector"

// UndeterminedLanguage 检测器无法判断语言时返回的唯一候选
const UndeterminedLanguage = "und"

// Availability 本地能力的可用状态
type Availability int

const (
	// Unavailable 不可用
	Unavailable Availability = iota
	// Available 可直接使用
	Available
	// NeedsProvisioning 需要先下载或初始化模型
	NeedsProvisioning
)

// String 返回状态名称
func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case NeedsProvisioning:
		return "downloadable"
	default:
		return "unavailable"
	}
}

// ProgressFunc 准备进度回调，loaded 取值 0..1
type ProgressFunc func(loaded float64)

// Detection 语言检测候选
type Detection struct {
	Language   string
	Confidence float64
}

// Detector 本地语言检测器
type Detector interface {
	// Detect 返回按置信度降序排列的候选语言
	Detect(ctx context.Context, text string) ([]Detection, error)
}

// DetectorFactory 本地语言检测能力
type DetectorFactory interface {
	Availability(ctx context.Context) (Availability, error)

	// Provision 开始准备模型，返回的通道在完成时收到 nil 或错误后关闭
	Provision(ctx context.Context, monitor ProgressFunc) <-chan error

	Create(ctx context.Context) (Detector, error)
}

// LocalTranslator 本地翻译器，针对固定的语言对
type LocalTranslator interface {
	// Translate 返回空字符串表示无法翻译
	Translate(ctx context.Context, text string) (string, error)
}

// TranslatorFactory 本地翻译能力
type TranslatorFactory interface {
	Availability(ctx context.Context, sourceLanguageCode, targetLanguageCode string) (Availability, error)

	// Provision 开始准备语言对模型，返回的通道在完成时收到 nil 或错误后关闭
	Provision(ctx context.Context, sourceLanguageCode, targetLanguageCode string, monitor ProgressFunc) <-chan error

	Create(ctx context.Context, sourceLanguageCode, targetLanguageCode string) (LocalTranslator, error)
}

// PrepareDetector 按可用状态准备检测器，需要下载时等待完成。
// 失败时返回 CapabilityUnavailableError 或 ProvisioningError
func PrepareDetector(ctx context.Context, factory DetectorFactory, monitor ProgressFunc) (Detector, error) {
	if factory == nil {
		return nil, &providers.CapabilityUnavailableError{Capability: DetectorCapability}
	}

	availability, err := factory.Availability(ctx)
	if err != nil {
		return nil, &providers.ProvisioningError{Capability: DetectorCapability, Err: err}
	}

	switch availability {
	case Available:
	case NeedsProvisioning:
		if err := await(ctx, factory.Provision(ctx, monitor)); err != nil {
			return nil, &providers.ProvisioningError{Capability: DetectorCapability, Err: err}
		}
	default:
		return nil, &providers.CapabilityUnavailableError{Capability: DetectorCapability}
	}

	detector, err := factory.Create(ctx)
	if err != nil {
		return nil, &providers.ProvisioningError{Capability: DetectorCapability, Err: err}
	}
	return detector, nil
}

// await 等待准备完成
func await(ctx context.Context, done <-chan error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-done:
		if !ok {
			return nil
		}
		return err
	}
}
