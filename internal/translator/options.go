package translator

import (
	"time"

	"go.uber.org/zap"
)

// DefaultSourceTextDelay 输入文本持久化的防抖时间
const DefaultSourceTextDelay = 200 * time.Millisecond

// Option 协调器配置选项函数
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	logger          *zap.Logger
	sourceTextDelay time.Duration
	newRequestID    func() string
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// WithSourceTextDelay 设置输入文本持久化的防抖时间
func WithSourceTextDelay(delay time.Duration) Option {
	return func(o *coordinatorOptions) {
		if delay > 0 {
			o.sourceTextDelay = delay
		}
	}
}

// WithRequestID 设置请求 ID 生成函数
func WithRequestID(fn func() string) Option {
	return func(o *coordinatorOptions) {
		o.newRequestID = fn
	}
}
