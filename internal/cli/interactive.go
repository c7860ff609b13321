package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-popup-translator/internal/render"
	"github.com/nerdneilsfield/go-popup-translator/internal/translator"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

const interactiveHelp = `命令:
  :swap              交换源语言和目标语言
  :reverse [on|off]  切换反向翻译
  :clear             清除输入和结果
  :from LANG         选择源语言 (代码或名称)
  :to LANG           选择目标语言 (代码或名称)
  :translator UID    切换翻译器
  :languages         列出语言
  :word WORD         翻译词典中的词
  :translate         翻译已输入的文本 (--manual 模式)
  :quit              退出
其它输入直接翻译。`

// newInteractiveCommand 创建 interactive 命令
func newInteractiveCommand(opts *rootOptions) *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "交互式翻译会话，自动翻译新的选中文本",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				s := &session{app: a, manual: manual}
				return s.run(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "逐行输入文本，使用 :translate 翻译")
	return cmd
}

// session 交互式会话。翻译在后台执行，新的翻译会取代进行中的翻译
type session struct {
	*app
	manual bool

	outMu  sync.Mutex
	wg     sync.WaitGroup
	buffer []string
}

func (s *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	restored, err := s.coordinator.Restore(ctx)
	if err != nil {
		s.print(func() { _ = s.report(err) })
	} else {
		s.print(func() { s.printRestored(ctx, restored.Outcome, restored.PreviousText) })
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil

		case line, ok := <-lines:
			if !ok {
				s.wg.Wait()
				return nil
			}
			if quit := s.handle(ctx, line); quit {
				s.wg.Wait()
				return nil
			}

		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.onChange(ctx, change)
		}
	}
}

// onChange 选中文本变化时翻译新的选中文本
func (s *session) onChange(ctx context.Context, change store.ChangeSet) {
	raw, ok := change[store.KeySelectedText]
	if !ok || raw == nil {
		return
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil || text == "" {
		return
	}
	if text == s.coordinator.Text() {
		return
	}
	s.translate(ctx, text)
}

// handle 处理一行输入，返回是否退出
func (s *session) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ":") {
		if s.manual {
			s.buffer = append(s.buffer, line)
			s.coordinator.UpdateSourceText(strings.Join(s.buffer, "\n"))
			return false
		}
		if trimmed != "" {
			s.translate(ctx, trimmed)
		}
		return false
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(trimmed, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "q", "quit", "exit":
		return true

	case "help", "h", "?":
		s.print(func() { s.printer.Println(interactiveHelp) })

	case "swap":
		selection, err := s.coordinator.Swap(ctx)
		if err != nil {
			s.print(func() { _ = s.report(err) })
			return false
		}
		s.print(func() { s.printSelection(selection.SourceLanguageCode, selection.TargetLanguageCode) })
		s.retranslate(ctx)

	case "reverse":
		on, err := s.coordinator.Reverse(ctx)
		if err != nil {
			s.print(func() { _ = s.report(err) })
			return false
		}
		switch arg {
		case "on":
			on = true
		case "off":
			on = false
		default:
			on = !on
		}
		s.run1(ctx, func(ctx context.Context) (*translator.Outcome, error) {
			return s.coordinator.SetReverse(ctx, on)
		})

	case "clear":
		s.buffer = nil
		if err := s.coordinator.Clear(ctx); err != nil {
			s.print(func() { _ = s.report(err) })
		}

	case "from", "to":
		if arg == "" {
			s.print(func() { s.printer.Println(interactiveHelp) })
			return false
		}
		set := s.coordinator.SetTargetLanguage
		if name == "from" {
			set = s.coordinator.SetSourceLanguage
		}
		if _, err := set(ctx, arg); err != nil {
			s.print(func() { _ = s.report(err) })
			return false
		}
		selection, err := s.coordinator.Selection(ctx)
		if err == nil {
			s.print(func() { s.printSelection(selection.SourceLanguageCode, selection.TargetLanguageCode) })
		}
		s.retranslate(ctx)

	case "translator":
		t, err := s.coordinator.SetTranslator(ctx, arg)
		if err != nil {
			s.print(func() { _ = s.report(err) })
			return false
		}
		s.print(func() { s.printer.Label("%s (%s)", t.FriendlyName(), t.UID()) })
		s.retranslate(ctx)

	case "languages":
		selection, err := s.coordinator.Selection(ctx)
		if err != nil {
			s.print(func() { _ = s.report(err) })
			return false
		}
		s.print(func() {
			render.LanguagesTable(s.out, s.coordinator.Languages(),
				selection.SourceLanguageCode, selection.TargetLanguageCode, s.coordinator.AutoDetectLabel())
		})

	case "word":
		if arg == "" {
			return false
		}
		s.run1(ctx, func(ctx context.Context) (*translator.Outcome, error) {
			return s.coordinator.TranslateWord(ctx, arg)
		})

	case "translate":
		text := strings.TrimSpace(strings.Join(s.buffer, "\n"))
		s.buffer = nil
		if text == "" {
			text = s.coordinator.Text()
		}
		s.translate(ctx, text)

	default:
		s.print(func() { s.printer.Println(fmt.Sprintf("unknown command :%s", name)) })
		s.print(func() { s.printer.Println(interactiveHelp) })
	}
	return false
}

// translate 在后台翻译文本
func (s *session) translate(ctx context.Context, text string) {
	s.run1(ctx, func(ctx context.Context) (*translator.Outcome, error) {
		return s.coordinator.Translate(ctx, text)
	})
}

// retranslate 语言或翻译器变化后重新翻译当前文本
func (s *session) retranslate(ctx context.Context) {
	if text := s.coordinator.Text(); text != "" {
		s.translate(ctx, text)
	}
}

// run1 在后台执行一次翻译并输出结果，被取代的翻译不输出
func (s *session) run1(ctx context.Context, fn func(ctx context.Context) (*translator.Outcome, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		outcome, err := fn(ctx)
		s.print(func() {
			if err != nil {
				_ = s.report(err)
				return
			}
			s.printOutcome(ctx, outcome)
		})
	}()
}

// print 串行化输出
func (s *session) print(fn func()) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fn()
}

// printSelection 输出当前语言选择
func (s *session) printSelection(source, target string) {
	s.printer.Label("%s → %s", s.sourceLabel(source), s.targetLabel(target))
}
