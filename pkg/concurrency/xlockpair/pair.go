package xlockpair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/omeyang/xconc/pkg/observability/xlog"
	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

// Pair 是同时持有的两把锁，Release 按 B、A 的顺序释放。
type Pair struct {
	a, b     Locker
	released atomic.Bool
}

// A 返回第一把锁。
func (p *Pair) A() Locker { return p.a }

// B 返回第二把锁。
func (p *Pair) B() Locker { return p.b }

// Held 报告 Pair 是否仍持有锁。
func (p *Pair) Held() bool {
	return !p.released.Load()
}

// Release 先释放 B 再释放 A。
// 两次解锁都会执行，错误用 errors.Join 合并。重复调用返回 ErrNotHeld。
func (p *Pair) Release() error {
	if !p.released.CompareAndSwap(false, true) {
		return ErrNotHeld
	}
	var errs []error
	if err := p.b.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("xlockpair: release lock B (%s): %w", p.b.Name(), err))
	}
	if err := p.a.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("xlockpair: release lock A (%s): %w", p.a.Name(), err))
	}
	return errors.Join(errs...)
}

// AcquireBoth 在 timeoutA 内获取 a，再在 timeoutB 内获取 b。
//
// timeoutB <= 0 时 b 使用 a 剩余的时间预算（两把锁共享 timeoutA）。
// 获取 b 失败时先释放 a 再返回。超时错误满足 errors.Is(err, ErrTimedOut)；
// 父 ctx 被取消时错误解包为 context.Canceled。
func AcquireBoth(ctx context.Context, a, b Locker, timeoutA, timeoutB time.Duration, opts ...Option) (*Pair, error) {
	if err := validate(ctx, a, b, timeoutA); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return acquireBoth(ctx, a, b, timeoutA, timeoutB, &o)
}

// Acquire 是 AcquireBoth 的单一超时形式：两把锁共享 timeout。
func Acquire(ctx context.Context, a, b Locker, timeout time.Duration, opts ...Option) (*Pair, error) {
	return AcquireBoth(ctx, a, b, timeout, 0, opts...)
}

// WithBoth 获取两把锁后执行 fn，并在 fn 返回或 panic 时按逆序释放。
// 释放错误与 fn 的错误合并返回。
func WithBoth(ctx context.Context, a, b Locker, timeoutA, timeoutB time.Duration,
	fn func(ctx context.Context) error, opts ...Option) (err error) {
	if fn == nil {
		return ErrNilFunc
	}
	pair, err := AcquireBoth(ctx, a, b, timeoutA, timeoutB, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := pair.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(ctx)
}

func validate(ctx context.Context, a, b Locker, timeout time.Duration) error {
	switch {
	case ctx == nil:
		return ErrNilContext
	case a == nil || b == nil:
		return ErrNilLocker
	case timeout <= 0:
		return fmt.Errorf("%w: got %s", ErrInvalidTimeout, timeout)
	case sameLocker(a, b):
		return ErrSameLock
	}
	return nil
}

// sameLocker 比较两个 Locker 是否为同一实例，包装层（Unwrap() Locker）先展开。
// 动态类型不可比较时视为不同。
func sameLocker(a, b Locker) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return unwrapLocker(a) == unwrapLocker(b)
}

func unwrapLocker(l Locker) Locker {
	for {
		u, ok := l.(interface{ Unwrap() Locker })
		if !ok {
			return l
		}
		l = u.Unwrap()
	}
}

func acquireBoth(ctx context.Context, a, b Locker, timeoutA, timeoutB time.Duration, o *options) (*Pair, error) {
	logger := o.logger.With(slog.String("lock_a", a.Name()), slog.String("lock_b", b.Name()))
	ctx, span := xmetrics.Start(ctx, o.observer, xmetrics.SpanOptions{
		Component: "xlockpair",
		Operation: "acquire_both",
		Attrs: []xmetrics.Attr{
			xmetrics.String("lock_a", a.Name()),
			xmetrics.String("lock_b", b.Name()),
		},
	})

	start := time.Now()
	deadlineA := start.Add(timeoutA)

	ctxA, cancelA := context.WithDeadline(ctx, deadlineA)
	err := a.Lock(ctxA)
	cancelA()
	if err != nil {
		acqErr := &AcquireError{Which: SideA, Lock: a.Name(), Cause: err}
		logger.Debug("xlockpair: acquire failed", xlog.Side(SideA.String()), xlog.Err(err))
		span.End(failureResult(acqErr, SideA))
		return nil, acqErr
	}

	var ctxB context.Context
	var cancelB context.CancelFunc
	if timeoutB > 0 {
		ctxB, cancelB = context.WithTimeout(ctx, timeoutB)
	} else {
		ctxB, cancelB = context.WithDeadline(ctx, deadlineA)
	}
	err = b.Lock(ctxB)
	cancelB()
	if err != nil {
		acqErr := &AcquireError{Which: SideB, Lock: b.Name(), Cause: err}
		if uerr := a.Unlock(); uerr != nil {
			logger.Error("xlockpair: release lock A after failure", xlog.Err(uerr))
		}
		logger.Debug("xlockpair: acquire failed, lock A released", xlog.Side(SideB.String()), xlog.Err(err))
		span.End(failureResult(acqErr, SideB))
		return nil, acqErr
	}

	span.End(xmetrics.Result{Attrs: []xmetrics.Attr{xmetrics.Duration("wait", time.Since(start))}})
	return &Pair{a: a, b: b}, nil
}

func failureResult(err *AcquireError, side Side) xmetrics.Result {
	r := xmetrics.Result{
		Err:   err,
		Attrs: []xmetrics.Attr{xmetrics.String(xmetrics.AttrSide, side.String())},
	}
	if errors.Is(err, ErrTimedOut) {
		r.Status = xmetrics.StatusTimeout
	}
	return r
}
