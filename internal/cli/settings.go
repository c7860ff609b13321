package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-popup-translator/internal/config"
	"github.com/nerdneilsfield/go-popup-translator/internal/render"
)

// newLanguagesCommand 创建 languages 命令
func newLanguagesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "列出当前翻译器支持的语言",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				selection, err := a.coordinator.Selection(ctx)
				if err != nil {
					return a.report(err)
				}
				render.LanguagesTable(a.out, a.coordinator.Languages(),
					selection.SourceLanguageCode, selection.TargetLanguageCode, a.coordinator.AutoDetectLabel())
				return nil
			})
		},
	}
}

// newSwapCommand 创建 swap 命令
func newSwapCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "swap",
		Short: "交换源语言和目标语言",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				selection, err := a.coordinator.Swap(ctx)
				if err != nil {
					return a.report(err)
				}
				a.printer.Label("%s → %s", a.sourceLabel(selection.SourceLanguageCode), a.targetLabel(selection.TargetLanguageCode))
				return nil
			})
		},
	}
}

// newReverseCommand 创建 reverse 命令
func newReverseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "reverse [on|off]",
		Short:     "查看或设置反向翻译；开启时重新翻译上次的文本",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				if len(args) == 0 {
					on, err := a.coordinator.Reverse(ctx)
					if err != nil {
						return err
					}
					a.printer.Println(onOff(on))
					return nil
				}

				var on bool
				switch args[0] {
				case "on":
					on = true
				case "off":
					on = false
				default:
					return fmt.Errorf("expected on or off, got %q", args[0])
				}

				outcome, err := a.coordinator.SetReverse(ctx, on)
				if err != nil {
					return a.report(err)
				}
				a.printer.Println(onOff(on))
				if outcome != nil {
					a.printOutcome(ctx, outcome)
				}
				return nil
			})
		},
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// newFromCommand 创建 from 命令
func newFromCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "from LANG",
		Short: "选择源语言 (代码或名称)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				code, err := a.coordinator.SetSourceLanguage(ctx, strings.Join(args, " "))
				if err != nil {
					return a.report(err)
				}
				a.printer.Println(fmt.Sprintf("%s (%s)", a.sourceLabel(code), code))
				return nil
			})
		},
	}
}

// newToCommand 创建 to 命令
func newToCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "to LANG",
		Short: "选择目标语言 (代码或名称)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				code, err := a.coordinator.SetTargetLanguage(ctx, strings.Join(args, " "))
				if err != nil {
					return a.report(err)
				}
				a.printer.Println(fmt.Sprintf("%s (%s)", a.targetLabel(code), code))
				return nil
			})
		},
	}
}

// newTranslatorCommand 创建 translator 命令
func newTranslatorCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translator [uid]",
		Short: "列出或切换翻译器，未知的 uid 回退到默认翻译器",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					if _, err := a.coordinator.SetTranslator(ctx, args[0]); err != nil {
						return a.report(err)
					}
				}

				current := a.coordinator.Translator()
				for _, t := range a.registry.List() {
					marker := " "
					if current != nil && t.UID() == current.UID() {
						marker = "*"
					}
					a.printer.Println(fmt.Sprintf("%s %-20s %s", marker, t.UID(), t.FriendlyName()))
				}
				return nil
			})
		},
	}
}

// newResetCommand 创建 reset 命令
func newResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "清除所有保存的设置和翻译",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				if !yes {
					fmt.Fprintf(a.out, "%s [y/N] ", a.localizer.Message("troubleshootingResetSettingsQuestion"))
					answer, _ := bufio.NewReader(a.in).ReadString('\n')
					answer = strings.ToLower(strings.TrimSpace(answer))
					if answer != "y" && answer != "yes" {
						return nil
					}
				}

				if err := a.store.Clear(ctx); err != nil {
					return fmt.Errorf("failed to reset store: %w", err)
				}
				a.printer.Println(a.localizer.Message("resetDone"))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "不询问直接清除")
	return cmd
}

// newConfigCommand 创建 config 命令
func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "显示当前配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			renderConfig(cmd, opts, cfg)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "写入默认配置文件 (默认 ~/.popup-translator.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfig(config.NewDefaultConfig(), path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "配置已写入", config.ConfigFileUsed(path))
			return nil
		},
	})
	return cmd
}

// renderConfig 以表格输出配置，API 密钥只显示是否设置
func renderConfig(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) {
	apiKey := "(未设置)"
	if cfg.OpenAI.APIKey != "" {
		apiKey = "(已设置)"
	}
	file := config.ConfigFileUsed(opts.cfgFile)
	if file == "" {
		file = "(默认值)"
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendRow(table.Row{"项", "值"})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"配置文件", file})
	tw.AppendRow(table.Row{"translator", cfg.Translator})
	tw.AppendRow(table.Row{"ui_language", cfg.UILanguage})
	tw.AppendRow(table.Row{"accept_languages", strings.Join(cfg.AcceptLanguages, ",")})
	tw.AppendRow(table.Row{"debug", cfg.Debug})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"store.backend", cfg.Store.Backend})
	tw.AppendRow(table.Row{"store.path", cfg.Store.Path})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"google.base_url", cfg.Google.BaseURL})
	tw.AppendRow(table.Row{"google.timeout", cfg.Google.Timeout})
	tw.AppendRow(table.Row{"openai.base_url", cfg.OpenAI.BaseURL})
	tw.AppendRow(table.Row{"openai.model", cfg.OpenAI.Model})
	tw.AppendRow(table.Row{"openai.api_key", apiKey})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"on_device.enabled", cfg.OnDevice.Enabled})
	tw.AppendRow(table.Row{"on_device.phrasebook_dir", cfg.OnDevice.PhrasebookDir})
	tw.AppendRow(table.Row{"detection.min_confidence", cfg.Detection.MinConfidence})
	tw.AppendRow(table.Row{"debounce.source_text", cfg.Debounce.SourceText})
	tw.AppendRow(table.Row{"debounce.selection", cfg.Debounce.Selection})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}
