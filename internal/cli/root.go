package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-popup-translator/internal/config"
	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// rootOptions 全局标志
type rootOptions struct {
	cfgFile    string
	debug      bool
	noColor    bool
	uiLanguage string

	deps *dependencies
}

// dependencies 预先构造的依赖，测试中替换存储和翻译器
type dependencies struct {
	config   *config.Config
	store    store.Store
	registry *providers.Registry
}

// reportedError 已经向用户显示过的错误，main 不再重复输出
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported 错误是否已经显示给用户
func IsReported(err error) bool {
	var reported *reportedError
	return errors.As(err, &reported)
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	return newRootCommand(version, commit, buildDate, nil)
}

func newRootCommand(version, commit, buildDate string, deps *dependencies) *cobra.Command {
	opts := &rootOptions{deps: deps}

	rootCmd := &cobra.Command{
		Use:   "popup-translator [flags] [text]",
		Short: "终端里的弹出式翻译器",
		Long: `终端里的弹出式翻译器：翻译输入或选中的文本，显示词典和反向翻译。

语言选择、最近的翻译和语言对记忆保存在本地存储中，下次启动时恢复。
源语言为自动检测时，检测到的语言与目标语言相同会根据语言对记忆切换目标语言。

支持的翻译器:
  - google: Google 翻译 (默认)
  - openai: OpenAI 兼容接口 (需要 openai.api_key)
  - ondevice+<uid>: 优先使用本地语言检测和短语本`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, opts, args)
		},
	}

	addGlobalFlags(rootCmd, opts)

	rootCmd.AddCommand(
		newTranslateCommand(opts),
		newInteractiveCommand(opts),
		newShowCommand(opts),
		newLanguagesCommand(opts),
		newSwapCommand(opts),
		newReverseCommand(opts),
		newFromCommand(opts),
		newToCommand(opts),
		newTranslatorCommand(opts),
		newSelectCommand(opts),
		newWatchSelectionCommand(opts),
		newPageCommand(opts),
		newResetCommand(opts),
		newConfigCommand(opts),
	)

	return rootCmd
}

// addGlobalFlags 添加全局标志
func addGlobalFlags(rootCmd *cobra.Command, opts *rootOptions) {
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "配置文件路径 (默认 ~/.popup-translator.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "启用调试模式")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "禁用颜色输出")
	rootCmd.PersistentFlags().StringVar(&opts.uiLanguage, "ui-language", "", "界面语言 (默认从 LANGUAGE/LC_ALL/LANG 检测)")
}

// loadConfig 加载配置并用命令行参数覆盖
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if o.deps != nil && o.deps.config != nil {
		copied := *o.deps.config
		cfg = &copied
	} else {
		loaded, err := config.LoadConfig(o.cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("no-color") {
		cfg.NoColor = o.noColor
	}
	if flags.Changed("ui-language") {
		cfg.UILanguage = o.uiLanguage
	}
	return cfg, nil
}
