package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-popup-translator/internal/config"
	"github.com/nerdneilsfield/go-popup-translator/internal/i18n"
	"github.com/nerdneilsfield/go-popup-translator/internal/logger"
	"github.com/nerdneilsfield/go-popup-translator/internal/render"
	"github.com/nerdneilsfield/go-popup-translator/internal/translator"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers/ondevice"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// app 一次命令执行所需的全部组件
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       store.Store
	registry    *providers.Registry
	localizer   *i18n.Localizer
	coordinator *translator.Coordinator
	printer     *render.Printer
	progress    *render.Provisioning
	out         io.Writer
	in          io.Reader

	ownsStore bool
}

// newApp 加载配置并组装存储、翻译器、本地化和协调器
func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Debug)

	a := &app{
		cfg:    cfg,
		logger: log,
		out:    cmd.OutOrStdout(),
		in:     cmd.InOrStdin(),
	}
	a.printer = render.NewPrinter(a.out, cfg.NoColor)

	if opts.deps != nil && opts.deps.store != nil {
		a.store = opts.deps.store
	} else {
		s, err := store.Open(cfg.Store, logger.Named(log, "store"))
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		a.store = s
		a.ownsStore = true
	}

	// 标题依赖本地化，进度回调在本地化创建之后才会被调用
	var progress *render.Provisioning
	onProgress := func(capability string, loaded float64) {
		if progress != nil {
			progress.Update(capability, loaded)
		}
	}

	providerFactory, err := factory.New(cfg,
		factory.WithLogger(log),
		factory.WithProgress(onProgress))
	if err != nil {
		a.close()
		return nil, err
	}

	if opts.deps != nil && opts.deps.registry != nil {
		a.registry = opts.deps.registry
	} else {
		registry, err := providerFactory.NewRegistry()
		if err != nil {
			a.close()
			return nil, err
		}
		a.registry = registry
	}

	a.localizer = i18n.New(
		i18n.WithUILanguage(cfg.UILanguage),
		i18n.WithAcceptLanguages(cfg.AcceptLanguages),
		i18n.WithDetector(providerFactory.Detectors(), cfg.Detection.MinConfidence),
		i18n.WithProgress(func(loaded float64) { onProgress(ondevice.DetectorCapability, loaded) }),
		i18n.WithLogger(logger.Named(log, "i18n")))

	progress = render.NewProvisioning(cmd.ErrOrStderr(), func(capability string) string {
		return a.localizer.Message("provisioning", capability)
	})
	a.progress = progress

	a.coordinator = translator.NewCoordinator(a.registry, a.store, a.localizer,
		translator.WithLogger(logger.Named(log, "translator")),
		translator.WithSourceTextDelay(cfg.Debounce.SourceText))

	return a, nil
}

// ensureTranslator 存储中没有翻译器时使用配置的默认翻译器
func (a *app) ensureTranslator(ctx context.Context) error {
	uid, err := store.GetString(ctx, a.store, store.KeyTranslatorUID)
	if err != nil {
		return err
	}
	if uid == "" {
		uid = a.cfg.Translator
	}
	_, err = a.coordinator.SetTranslator(ctx, uid)
	return err
}

// close 保存未保存的输入并释放资源
func (a *app) close() {
	if a.coordinator != nil {
		a.coordinator.Close()
	}
	if a.progress != nil {
		a.progress.Stop()
	}
	if a.ownsStore && a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("关闭存储失败", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// withApp 创建组件、执行 fn 并释放资源
func withApp(cmd *cobra.Command, opts *rootOptions, needTranslator bool, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if needTranslator {
		if err := a.ensureTranslator(ctx); err != nil {
			return a.report(err)
		}
	}
	return fn(ctx, a)
}

// report 以显示树的形式输出错误，被取代的请求不输出
func (a *app) report(err error) error {
	if err == nil || errors.Is(err, translator.ErrSuperseded) {
		return err
	}
	a.printer.Print(render.RenderError(err, a.localizer))
	return &reportedError{err: err}
}

// sourceLabel 源语言的显示名称，自动检测时显示检测到的语言
func (a *app) sourceLabel(code string) string {
	languages := a.coordinator.Languages()
	if languages == nil {
		return code
	}
	if code == languages.AutoDetectLanguageCode {
		return a.coordinator.AutoDetectLabel()
	}
	if l, ok := languages.FindSource(code); ok {
		return l.FriendlyName
	}
	return code
}

// targetLabel 目标语言的显示名称
func (a *app) targetLabel(code string) string {
	languages := a.coordinator.Languages()
	if languages == nil {
		return code
	}
	if l, ok := languages.FindTarget(code); ok {
		return l.FriendlyName
	}
	return code
}

// printRestored 输出恢复的翻译，选中文本替换了之前的输入时显示之前的输入
func (a *app) printRestored(ctx context.Context, outcome *translator.Outcome, previousText string) {
	if outcome == nil {
		a.printer.Label("%s", a.localizer.Message("sourcePlaceholder"))
		return
	}
	a.printOutcome(ctx, outcome)
	if previousText != "" {
		a.printer.Println()
		a.printer.Label("%s", a.localizer.Message("restoredPreviousText", previousText))
	}
}

// printOutcome 输出翻译结果和反向翻译
func (a *app) printOutcome(ctx context.Context, outcome *translator.Outcome) {
	if outcome == nil || outcome.Translation == nil {
		return
	}

	source := outcome.SourceLanguageCode
	if selection, err := a.coordinator.Selection(ctx); err == nil {
		source = selection.SourceLanguageCode
	}

	a.printer.Label("%s → %s", a.sourceLabel(source), a.targetLabel(outcome.TargetLanguageCode))
	a.printer.Print(render.RenderTranslation(outcome.Translation))

	if outcome.Reverse != nil {
		a.printer.Println()
		a.printer.Label("%s", a.localizer.Message("reverseTranslation"))
		a.printer.Print(render.RenderTranslation(outcome.Reverse))
	}
}
