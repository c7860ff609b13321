// Package render 将翻译结果和错误转换为显示树，并输出到终端
package render

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// 节点类名
const (
	ClassDictionaryTranslation = "dictionary-translation"
	ClassPartOfSpeech          = "part-of-speech"
	ClassTerm                  = "term"
	ClassTermWord              = "term-word"
	ClassTermReverse           = "term-reverse"
	ClassTermReverseWord       = "term-reverse-word"
	ClassErrorCode             = "error-code"
	ClassErrorMessage          = "error-message"
)

// Node 显示树节点，Class 为空表示纯文本节点
type Node struct {
	Class    string
	Text     string
	Children []*Node
}

// Messages 本地化消息查询
type Messages interface {
	Message(key string, substitutions ...string) string
}

// RenderTranslation 生成翻译结果的显示树。
// 没有词典时只有一个文本节点；有词典时先是译文节点，
// 然后每个条目的词性节点和词条节点
func RenderTranslation(result *providers.TranslationResult) []*Node {
	if result == nil {
		return nil
	}

	if result.Dictionary == nil {
		return []*Node{{Text: result.TranslatedText}}
	}

	nodes := []*Node{{Class: ClassDictionaryTranslation, Text: result.TranslatedText}}
	for _, entry := range result.Dictionary {
		if entry.PartOfSpeech != "" {
			nodes = append(nodes, &Node{Class: ClassPartOfSpeech, Text: entry.PartOfSpeech})
		}

		for _, term := range entry.Terms {
			reverse := &Node{Class: ClassTermReverse}
			for _, word := range term.ReverseTranslation {
				reverse.Children = append(reverse.Children, &Node{Class: ClassTermReverseWord, Text: word})
			}

			nodes = append(nodes, &Node{
				Class: ClassTerm,
				Children: []*Node{
					{Class: ClassTermWord, Text: term.Word},
					reverse,
				},
			})
		}
	}
	return nodes
}

// RenderError 生成错误的显示树：有状态码时先是状态码节点，然后是消息节点。
// 429 和 414 使用本地化消息，其它状态使用状态文本，没有文本时使用未知错误
func RenderError(err error, messages Messages) []*Node {
	var nodes []*Node

	code := providers.StatusCode(err)
	if code != 0 {
		nodes = append(nodes, &Node{Class: ClassErrorCode, Text: strconv.Itoa(code)})
	}

	var message string
	switch code {
	case http.StatusTooManyRequests:
		message = messages.Message("errorTooManyRequests")
	case http.StatusRequestURITooLong:
		message = messages.Message("errorUriTooLong")
	default:
		message = errorText(err)
		if message == "" {
			message = messages.Message("errorUnknown")
		}
	}

	return append(nodes, &Node{Class: ClassErrorMessage, Text: message})
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *providers.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return err.Error()
}

// ReverseWords 按顺序返回树中所有反向翻译词，用于点击翻译
func ReverseWords(nodes []*Node) []string {
	var words []string
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Class == ClassTermReverseWord {
				words = append(words, n.Text)
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return words
}
