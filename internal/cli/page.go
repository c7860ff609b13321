package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

// ErrUnsupportedPageURL 只能翻译 http 和 https 页面
var ErrUnsupportedPageURL = errors.New("only http and https pages can be translated")

// PageTranslationURL 生成 Google 网页翻译地址，源语言总是自动检测
func PageTranslationURL(pageURL, targetLanguageCode, uiLanguageCode string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", ErrUnsupportedPageURL
	}

	translated := "https://translate.google.com/translate"
	translated += "?hl=" + url.QueryEscape(uiLanguageCode)
	translated += "&sl=auto"
	translated += "&tl=" + url.QueryEscape(targetLanguageCode)
	translated += "&u=" + url.QueryEscape(pageURL)
	return translated, nil
}

// newPageCommand 创建 page 命令
func newPageCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "page URL",
		Short: "输出网页翻译地址，目标语言为保存的目标语言或界面语言",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				uiLanguage := a.localizer.UILanguage()

				target, err := store.GetString(ctx, a.store, store.KeyTargetLangCode)
				if err != nil {
					return err
				}
				if target == "" {
					target = uiLanguage
				}

				translated, err := PageTranslationURL(args[0], target, uiLanguage)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, translated)
				return nil
			})
		},
	}
}
