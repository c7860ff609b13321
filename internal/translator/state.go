package translator

import (
	"errors"

	"github.com/nerdneilsfield/go-popup-translator/pkg/providers"
)

// State 协调器状态
type State int

const (
	// Idle 没有输入或已清除
	Idle State = iota
	// Resolving 确定源语言和目标语言
	Resolving
	// Translating 正向翻译中
	Translating
	// ReverseTranslating 反向翻译中
	ReverseTranslating
	// Done 翻译完成
	Done
	// Error 翻译失败
	Error
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Translating:
		return "translating"
	case ReverseTranslating:
		return "reverse-translating"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrSuperseded 翻译被之后的请求取代，没有写入任何状态
	ErrSuperseded = errors.New("translation superseded by a newer request")

	// ErrNoTranslator 没有可用的翻译器
	ErrNoTranslator = errors.New("no translator selected")

	// ErrNothingToSwap 源语言为自动检测且还没有检测到语言
	ErrNothingToSwap = errors.New("no detected language to swap with")
)

// Outcome 一次翻译或恢复的结果
type Outcome struct {
	RequestID string
	State     State

	SourceText         string
	SourceLanguageCode string
	TargetLanguageCode string

	Translation *providers.TranslationResult

	// Reverse 反向翻译结果，未开启反向翻译时为 nil
	Reverse *providers.TranslationResult

	// Redisplayed 结果来自存储而不是新的请求
	Redisplayed bool
}

// Restored 启动恢复的结果
type Restored struct {
	// Outcome 没有可恢复的文本时为 nil
	Outcome *Outcome

	// PreviousText 选中文本替换了之前的输入时保存之前的输入，用于撤销
	PreviousText string
}
