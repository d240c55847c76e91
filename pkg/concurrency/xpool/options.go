package xpool

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

const defaultName = "xpool"

// Option 定义 Pool 可选配置函数类型。
type Option func(*options)

type options struct {
	logger        *slog.Logger
	name          string
	observer      xmetrics.Observer
	meterProvider metric.MeterProvider
	onError       func(error)
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
		name:   defaultName,
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

// WithName 设置 pool 名称，用于日志与指标区分多个实例。空字符串被忽略。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithObserver 为每个任务开启一个观测跨度（component=xpool, operation=task）。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithMeterProvider 注册 pool 的 OTel 可观测指标（worker 数、队列深度、任务计数）。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithErrorHandler 设置任务失败回调，err 可能是任务返回的错误或 *PanicError。
// 回调在 worker goroutine 上同步执行。
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}
