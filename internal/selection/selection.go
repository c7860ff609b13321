// Package selection 捕获选中的文本并写入存储，供翻译会话读取
package selection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-popup-translator/internal/debounce"
	"github.com/nerdneilsfield/go-popup-translator/pkg/store"
)

const (
	// DefaultDelay 文件变化后写入前的静默时间
	DefaultDelay = 100 * time.Millisecond

	// InitialDelay 开始监视后首次读取文件前的等待时间
	InitialDelay = 300 * time.Millisecond
)

// Select 去掉首尾空白后写入 selectedText，空文本也会写入
func Select(ctx context.Context, s store.Store, text string) error {
	if err := s.Set(ctx, map[string]any{store.KeySelectedText: strings.TrimSpace(text)}); err != nil {
		return fmt.Errorf("failed to store selected text: %w", err)
	}
	return nil
}

// Watcher 监视一个文件，文件内容即当前选中的文本
type Watcher struct {
	store  store.Store
	path   string
	delay  time.Duration
	logger *zap.Logger
}

// Option 监视器选项
type Option func(*Watcher)

// WithDelay 设置防抖时间
func WithDelay(delay time.Duration) Option {
	return func(w *Watcher) {
		if delay > 0 {
			w.delay = delay
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher 创建文件监视器
func NewWatcher(s store.Store, path string, opts ...Option) *Watcher {
	w := &Watcher{
		store:  s,
		path:   filepath.Clean(path),
		delay:  DefaultDelay,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run 监视文件直到 ctx 取消。
// 监视文件所在目录，编辑器通过重命名替换文件时也能收到事件
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Info("开始监视选中文本", zap.String("path", w.path))

	initial := debounce.New(InitialDelay)
	defer initial.Cancel()
	initial.Trigger(func() { w.update(ctx) })

	debouncer := debounce.New(w.delay)
	defer debouncer.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			initial.Cancel()
			debouncer.Trigger(func() { w.update(ctx) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("文件监视错误", zap.Error(err))
		}
	}
}

// update 读取文件并写入存储，文件不存在时写入空文本
func (w *Watcher) update(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("读取选中文本失败", zap.String("path", w.path), zap.Error(err))
		return
	}

	if err := Select(ctx, w.store, string(data)); err != nil {
		w.logger.Warn("保存选中文本失败", zap.Error(err))
		return
	}
	w.logger.Debug("选中文本已更新", zap.Int("length", len(strings.TrimSpace(string(data)))))
}
