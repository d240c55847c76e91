package xlockpair

import (
	"log/slog"
	"time"

	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

const (
	defaultAttempts  uint = 5
	defaultBackoff        = 10 * time.Millisecond
	defaultMaxJitter      = 20 * time.Millisecond
)

// Option 定义成对加锁的可选配置函数类型。
type Option func(*options)

type options struct {
	observer  xmetrics.Observer
	logger    *slog.Logger
	attempts  uint
	backoff   time.Duration
	maxJitter time.Duration
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    slog.Default(),
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
		maxJitter: defaultMaxJitter,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithObserver 为每次成对加锁开启一个观测跨度（component=xlockpair）。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = observer
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

// WithAttempts 设置 AcquireBothRetry 的最大尝试次数（含首次），默认 5。0 被忽略。
func WithAttempts(n uint) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithBackoff 设置 AcquireBothRetry 的初始退避间隔，之后按指数增长，默认 10ms。
func WithBackoff(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.backoff = d
		}
	}
}

// WithMaxJitter 设置 AcquireBothRetry 每次退避附加的最大随机抖动，默认 20ms。
func WithMaxJitter(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxJitter = d
		}
	}
}
