package render

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// LanguagesTable 输出语言列表，标记可作为源语言或目标语言以及当前选择
func LanguagesTable(w io.Writer, languages *providers.SupportedLanguages, sourceLanguageCode, targetLanguageCode, autoDetectLabel string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"", "代码", "名称", "源", "目标"})

	seen := make(map[string]bool)
	var rows []providers.Language
	for _, l := range languages.SourceLanguages {
		if !seen[l.Code] {
			seen[l.Code] = true
			rows = append(rows, l)
		}
	}
	for _, l := range languages.TargetLanguages {
		if !seen[l.Code] {
			seen[l.Code] = true
			rows = append(rows, l)
		}
	}

	for _, l := range rows {
		name := l.FriendlyName
		if l.Code == languages.AutoDetectLanguageCode && autoDetectLabel != "" {
			name = autoDetectLabel
		}

		_, isSource := languages.FindSource(l.Code)
		_, isTarget := languages.FindTarget(l.Code)

		marker := ""
		switch {
		case l.Code == sourceLanguageCode && l.Code == targetLanguageCode:
			marker = "⇄"
		case l.Code == sourceLanguageCode:
			marker = "→"
		case l.Code == targetLanguageCode:
			marker = "←"
		}

		tw.AppendRow(table.Row{marker, l.Code, name, check(isSource), check(isTarget)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.FgYellow}},
		{Number: 2, Colors: text.Colors{text.FgHiBlack}},
		{Number: 4, Align: text.AlignCenter},
		{Number: 5, Align: text.AlignCenter},
	})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return ""
}
