package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"
)

// Group 基于 errgroup + context 管理多个服务的并发运行与协调关闭。
//
// 任一服务返回错误或 context 被取消时，所有服务都会收到取消信号。
// Go、GoWithName、Cancel 可并发调用；Wait 只应调用一次。
//
//	g, ctx := xrun.NewGroup(ctx)
//	g.Go(xrun.PoolService(pool, 5*time.Second))
//	g.Go(xrun.WatchService(watcher))
//	if err := g.Wait(); err != nil {
//	    log.Fatal(err)
//	}
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，并返回任一服务出错时会被取消的派生 context。
// nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)

	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 启动一个 goroutine 执行 fn。fn 应监听 ctx.Done() 并及时返回。
// fn 返回非 nil 错误时取消其余服务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，额外记录服务的启动与退出日志。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		g.opts.logger.Debug("service starting",
			slog.String("group", g.opts.name),
			slog.String("service", name),
		)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn("service exited with error",
				slog.String("group", g.opts.name),
				slog.String("service", name),
				slog.Any("error", err),
			)
		} else {
			g.opts.logger.Debug("service stopped",
				slog.String("group", g.opts.name),
				slog.String("service", name),
			)
		}
		return err
	})
}

// Wait 等待所有服务退出并返回第一个非 nil 错误。
//
// context.Canceled 被过滤：若 Group 被 Cancel(cause) 或信号取消，返回该 cause
// （例如 *SignalError）；普通取消返回 nil。
// 所有服务都返回 nil 时，显式设置的 cause 依然会被返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	g.opts.logger.Debug("waiting for services",
		slog.String("group", g.opts.name),
	)

	err := g.eg.Wait()

	g.opts.logger.Debug("all services stopped",
		slog.String("group", g.opts.name),
	)

	// 以 causeCtx 区分取消来源：causeCtx 未取消说明 Canceled 来自服务内部。
	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() != nil {
			return g.explicitCause()
		}
		return err
	}

	if err == nil && g.causeCtx.Err() != nil {
		return g.explicitCause()
	}
	return err
}

func (g *Group) explicitCause() error {
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 主动取消所有服务，cause 成为 Wait 的返回值。
//
// cause 不应包装 context.Canceled，否则会被 Wait 当作普通取消过滤掉。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// runGroup 是 Run/RunWithOptions/RunServices 的共享实现。
// 默认注册信号监听服务，收到信号时以 *SignalError 取消 Group。
func runGroup(ctx context.Context, opts []Option, setup func(g *Group)) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		// signal.Notify 无参时订阅所有信号，空列表按默认处理。
		if len(signals) == 0 {
			signals = DefaultSignals()
		}

		g.Go(func(ctx context.Context) error {
			testc := testSigChan(ctx)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, signals...)
			defer signal.Stop(sigCh)

			var sig os.Signal
			select {
			case sig = <-testc:
			case sig = <-sigCh:
			case <-ctx.Done():
				return ctx.Err()
			}

			g.opts.logger.Info("received signal",
				slog.String("group", g.opts.name),
				slog.String("signal", sig.String()),
			)
			g.cancel(&SignalError{Signal: sig})
			return nil
		})
	}

	setup(g)
	return g.Wait()
}

// Run 监听信号并运行服务，是命令行程序最常用的启动方式。
//
// 收到 DefaultSignals 中的信号时 ctx 被取消，Run 返回 *SignalError：
//
//	err := xrun.Run(ctx, xrun.PoolService(pool, 5*time.Second))
//	if errors.Is(err, xrun.ErrSignal) {
//	    log.Println("shutting down")
//	}
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 与 Run 相同，但支持配置选项。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			g.Go(svc)
		}
	})
}

// Service 定义可由 RunServices 统一管理的服务。
type Service interface {
	// Run 阻塞直到 ctx 被取消或发生错误。
	Run(ctx context.Context) error
}

// ServiceFunc 将函数适配为 Service。
type ServiceFunc func(ctx context.Context) error

// Run 实现 Service 接口。
func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// RunServices 运行多个 Service，监听信号并协调关闭。nil Service 返回 ErrNilService。
func RunServices(ctx context.Context, opts []Option, services ...Service) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			if svc == nil {
				g.Go(func(context.Context) error { return ErrNilService })
				continue
			}
			g.Go(svc.Run)
		}
	})
}
