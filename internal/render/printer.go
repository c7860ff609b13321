package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Printer 将显示树输出到终端
type Printer struct {
	out io.Writer

	translation  *color.Color
	partOfSpeech *color.Color
	word         *color.Color
	reverse      *color.Color
	errorCode    *color.Color
	errorText    *color.Color
	label        *color.Color
}

// NewPrinter 创建输出器，noColor 为 true 时不输出颜色
func NewPrinter(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:          out,
		translation:  color.New(color.Bold),
		partOfSpeech: color.New(color.FgCyan, color.Italic),
		word:         color.New(color.FgHiWhite),
		reverse:      color.New(color.FgHiBlack),
		errorCode:    color.New(color.FgRed, color.Bold),
		errorText:    color.New(color.FgRed),
		label:        color.New(color.FgYellow),
	}
	if noColor {
		for _, c := range []*color.Color{p.translation, p.partOfSpeech, p.word, p.reverse, p.errorCode, p.errorText, p.label} {
			c.DisableColor()
		}
	}
	return p
}

// Label 输出带颜色的标题行
func (p *Printer) Label(format string, args ...interface{}) {
	p.label.Fprintf(p.out, format, args...)
	fmt.Fprintln(p.out)
}

// Println 输出普通文本行
func (p *Printer) Println(args ...interface{}) {
	fmt.Fprintln(p.out, args...)
}

// Print 输出显示树。词条按词的显示宽度对齐，反向翻译词以逗号分隔
func (p *Printer) Print(nodes []*Node) {
	width := termWidth(nodes)

	for _, n := range nodes {
		switch n.Class {
		case "":
			fmt.Fprintln(p.out, n.Text)
		case ClassDictionaryTranslation:
			p.translation.Fprintln(p.out, n.Text)
		case ClassPartOfSpeech:
			fmt.Fprintln(p.out)
			p.partOfSpeech.Fprintln(p.out, n.Text)
		case ClassTerm:
			p.printTerm(n, width)
		case ClassErrorCode:
			p.errorCode.Fprint(p.out, n.Text+" ")
		case ClassErrorMessage:
			p.errorText.Fprintln(p.out, n.Text)
		default:
			fmt.Fprintln(p.out, n.Text)
		}
	}
}

func (p *Printer) printTerm(term *Node, width int) {
	var word string
	var reverse []string
	for _, child := range term.Children {
		switch child.Class {
		case ClassTermWord:
			word = child.Text
		case ClassTermReverse:
			for _, r := range child.Children {
				reverse = append(reverse, r.Text)
			}
		}
	}

	fmt.Fprint(p.out, "  ")
	p.word.Fprint(p.out, runewidth.FillRight(word, width))
	fmt.Fprint(p.out, "  ")
	p.reverse.Fprintln(p.out, strings.Join(reverse, ", "))
}

// termWidth 词条列的显示宽度，中日韩字符按两列计算
func termWidth(nodes []*Node) int {
	width := 0
	for _, n := range nodes {
		if n.Class != ClassTerm {
			continue
		}
		for _, child := range n.Children {
			if child.Class == ClassTermWord {
				if w := runewidth.StringWidth(child.Text); w > width {
					width = w
				}
			}
		}
	}
	return width
}
