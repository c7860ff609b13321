package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-popup-translator/internal/logger"
	"github.com/nerdneilsfield/go-popup-translator/internal/selection"
)

// newSelectCommand 创建 select 命令
func newSelectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select [text]",
		Short: "保存选中的文本，下次 show 或交互会话中翻译",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				return selection.Select(ctx, a.store, strings.Join(args, " "))
			})
		},
	}
}

// newWatchSelectionCommand 创建 watch-selection 命令
func newWatchSelectionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch-selection FILE",
		Short: "监视文件，文件内容变化时作为选中文本保存",
		Long: `监视文件，文件内容变化时作为选中文本保存。
可以配合剪贴板工具使用，例如:
  wl-paste --watch sh -c 'cat > /tmp/selection' &
  popup-translator watch-selection /tmp/selection`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				watcher := selection.NewWatcher(a.store, args[0],
					selection.WithDelay(a.cfg.Debounce.Selection),
					selection.WithLogger(logger.Named(a.logger, "selection")))
				return watcher.Run(ctx)
			})
		},
	}
}
