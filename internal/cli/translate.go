package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// newTranslateCommand 创建 translate 命令
func newTranslateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translate [text]",
		Short: "翻译文本，没有参数时读取标准输入",
		Example: `  popup-translator translate "good morning"
  echo "Guten Morgen" | popup-translator translate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, opts, args)
		},
	}
}

// runTranslate 翻译参数或标准输入中的文本
func runTranslate(cmd *cobra.Command, opts *rootOptions, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return cmd.Help()
	}

	return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
		outcome, err := a.coordinator.Translate(ctx, text)
		if err != nil {
			return a.report(err)
		}
		a.printOutcome(ctx, outcome)
		return nil
	})
}

// newShowCommand 创建 show 命令
func newShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "显示上次的翻译；有新的选中文本时翻译选中文本",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				restored, err := a.coordinator.Restore(ctx)
				if err != nil {
					return a.report(err)
				}
				a.printRestored(ctx, restored.Outcome, restored.PreviousText)
				return nil
			})
		},
	}
}
