package xbuffer

import "log/slog"

// Option 定义 Buffer 可选配置函数类型。
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithName 设置缓冲区名称，用于日志。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置日志记录器。默认使用 slog.Default()，nil 被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
