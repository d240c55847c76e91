package xmetrics

import (
	"context"
	"errors"
)

// Status 表示观测结果状态。
type Status string

const (
	// StatusOK 表示成功。
	StatusOK Status = "ok"
	// StatusError 表示任务或操作返回错误。
	StatusError Status = "error"
	// StatusPanic 表示任务 panic 后被恢复。
	StatusPanic Status = "panic"
	// StatusTimeout 表示等待超时（如加锁超时）。
	StatusTimeout Status = "timeout"
	// StatusRejected 表示提交被拒绝策略拒绝。
	StatusRejected Status = "rejected"
)

// Attr 表示观测属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 定义观测跨度的创建参数。
type SpanOptions struct {
	// Component 标识组件名称，如 "xpool"、"xlockpair"。
	Component string
	// Operation 标识操作名称，如 "task"、"acquire_both"。
	Operation string
	// Attrs 附加属性。
	Attrs []Attr
}

// Result 表示观测跨度结束时的结果。
type Result struct {
	// Status 表示操作状态；为空时根据 Err 推导。
	Status Status
	// Err 表示操作错误。
	Err error
	// Attrs 附加属性。
	Attrs []Attr
}

// Span 表示一次观测跨度。
type Span interface {
	// End 结束观测并记录结果。实现须保证幂等。
	End(result Result)
}

// Observer 定义统一观测接口。
type Observer interface {
	// Start 开始一次观测跨度。
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 是空实现。
type NoopObserver struct{}

// Start 返回 ctx 和空跨度。若 ctx 为 nil，返回 context.Background()。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是空跨度实现。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(Result) {}

// Start 使用 observer 开始观测，nil observer 时返回空跨度。
// 返回值保证非 nil：nil ctx 替换为 context.Background()，
// 自定义 Observer 返回 nil Span 时兜底为 [NoopSpan]。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}

// resolveStatus 推导最终状态。
// 显式 Status 优先；否则 context.DeadlineExceeded 视为超时，其余错误视为 error。
func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Err == nil {
		return StatusOK
	}
	if errors.Is(result.Err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusError
}
