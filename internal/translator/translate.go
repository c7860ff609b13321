package translator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// Translate 翻译输入文本。
//
// 空文本直接清除并回到 Idle。源语言为自动检测时先在本地检测语言，
// 可靠的检测结果与目标语言相同时从语言对记忆中选择另一个目标语言。
// 翻译后源语言与目标语言仍相同时再次查询语言对记忆，找到不同的目标语言则重新翻译。
// 开启反向翻译时将译文翻译回源语言。
//
// 任何失败都会清除保存的输入和结果并返回错误；被新请求取代时返回 ErrSuperseded，不写入任何内容。
func (c *Coordinator) Translate(ctx context.Context, sourceText string) (*Outcome, error) {
	c.sourceTextDebounce.Cancel()
	ctx, seq, done := c.begin(ctx)
	defer done()

	requestID := c.opts.newRequestID()
	logger := c.opts.logger.With(zap.String("request_id", requestID))

	if err := c.commit(seq, func() error {
		c.text = sourceText
		return nil
	}); err != nil {
		return nil, err
	}

	if sourceText == "" {
		if err := c.clear(ctx, seq); err != nil {
			return nil, err
		}
		return &Outcome{RequestID: requestID, State: Idle}, nil
	}

	outcome, err := c.translate(ctx, seq, logger, sourceText)
	if err != nil {
		return nil, c.fail(ctx, seq, logger, err)
	}
	outcome.RequestID = requestID

	c.setState(seq, Done)
	return outcome, nil
}

func (c *Coordinator) translate(ctx context.Context, seq uint64, logger *zap.Logger, sourceText string) (*Outcome, error) {
	translator, languages, err := c.active(ctx)
	if err != nil {
		return nil, err
	}
	uiLanguageCode := c.localizer.UILanguage()
	auto := languages.AutoDetectLanguageCode

	c.setState(seq, Resolving)

	selection, err := c.catalog.Select(ctx, languages)
	if err != nil {
		return nil, err
	}
	source, target := selection.SourceLanguageCode, selection.TargetLanguageCode

	if source == auto {
		detection := c.localizer.DetectLanguage(ctx, sourceText)
		var detected string
		if detection.IsReliable && len(detection.Languages) > 0 {
			// 检测器使用 ISO 639-1 代码，与翻译器的语言代码不一定相同
			detected, _ = languages.MatchSource(detection.Languages[0])
		}
		if detected != "" && detected == target {
			best, err := c.pairs.FindBestTargetLanguageCode(ctx, detected, target)
			if err != nil {
				return nil, err
			}
			if best != target {
				logger.Debug("检测到的语言与目标语言相同，切换目标语言",
					zap.String("detected", detected),
					zap.String("target", best))
				target = best
				if err := c.commit(seq, func() error {
					return c.store.Set(ctx, map[string]any{store.KeyTargetLangCode: target})
				}); err != nil {
					return nil, err
				}
			}
		}
	}

	c.setState(seq, Translating)

	requests := &providers.Requests{Translation: true, Dictionary: true}
	result, err := translator.Translate(ctx, sourceText, source, target, uiLanguageCode, requests)
	if err != nil {
		return nil, err
	}

	detected := ""
	if source == auto {
		source = result.SourceLanguageCode
		if code, ok := languages.MatchSource(source); ok {
			source = code
		}
		result.SourceLanguageCode = source
		detected = source
	}
	if err := c.commit(seq, func() error {
		c.detected = detected
		var value any
		if detected != "" {
			value = detected
		}
		return c.store.Set(ctx, map[string]any{store.KeyDetectedLanguageCode: value})
	}); err != nil {
		return nil, err
	}

	if source == target {
		best, err := c.pairs.FindBestTargetLanguageCode(ctx, source, target)
		if err != nil {
			return nil, err
		}
		if best != source {
			logger.Debug("源语言与目标语言相同，使用语言对记忆",
				zap.String("source", source),
				zap.String("target", best))
			target = best
			if err := c.commit(seq, func() error {
				if err := c.store.Set(ctx, map[string]any{store.KeyTargetLangCode: target}); err != nil {
					return err
				}
				return c.pairs.StoreLanguagePair(ctx, source, target)
			}); err != nil {
				return nil, err
			}

			result, err = translator.Translate(ctx, sourceText, source, target, uiLanguageCode, requests)
			if err != nil {
				return nil, err
			}
		}
	} else {
		if err := c.commit(seq, func() error {
			return c.pairs.StoreLanguagePair(ctx, source, target)
		}); err != nil {
			return nil, err
		}
	}

	if err := c.commit(seq, func() error {
		return c.store.Set(ctx, map[string]any{
			store.KeySourceText: sourceText,
			store.KeyTranslated: result,
		})
	}); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		State:              Done,
		SourceText:         sourceText,
		SourceLanguageCode: source,
		TargetLanguageCode: target,
		Translation:        result,
	}

	reverse, err := c.Reverse(ctx)
	if err != nil {
		return nil, err
	}
	if !reverse {
		if err := c.commit(seq, func() error {
			return c.store.Set(ctx, map[string]any{store.KeyTranslatedReverse: nil})
		}); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	c.setState(seq, ReverseTranslating)

	reversed, err := translator.Translate(ctx, result.TranslatedText, target, source, uiLanguageCode, &providers.Requests{Translation: true})
	if err != nil {
		return nil, err
	}
	if err := c.commit(seq, func() error {
		return c.store.Set(ctx, map[string]any{store.KeyTranslatedReverse: reversed})
	}); err != nil {
		return nil, err
	}
	outcome.Reverse = reversed

	logger.Debug("翻译完成",
		zap.String("source", source),
		zap.String("target", target),
		zap.Bool("reverse", true))

	return outcome, nil
}

// fail 进入 Error 状态并清除保存的输入和结果，被取代的请求不写入
func (c *Coordinator) fail(ctx context.Context, seq uint64, logger *zap.Logger, err error) error {
	if errors.Is(err, ErrSuperseded) {
		return ErrSuperseded
	}

	writeErr := c.commit(seq, func() error {
		c.state = Error
		// 请求上下文可能已取消，清除使用独立的上下文
		return c.store.Set(context.WithoutCancel(ctx), map[string]any{
			store.KeySourceText:        "",
			store.KeyTranslated:        nil,
			store.KeyTranslatedReverse: nil,
		})
	})
	if errors.Is(writeErr, ErrSuperseded) {
		logger.Debug("翻译被取代", zap.Error(err))
		return ErrSuperseded
	}
	if writeErr != nil {
		logger.Warn("清除翻译结果失败", zap.Error(writeErr))
	}

	logger.Warn("翻译失败",
		zap.Int("status", providers.StatusCode(err)),
		zap.Error(err))
	return err
}
