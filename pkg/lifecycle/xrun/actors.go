package xrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/omeyang/xconc/pkg/concurrency/xpool"
	"github.com/omeyang/xconc/pkg/config/xconf"
)

// DefaultSignals 返回默认监听的退出信号。
func DefaultSignals() []os.Signal {
	return []os.Signal{
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}
}

// testSigChanKey 用于在测试中通过 context 注入信号通道。
// runGroup 在生产代码中读取它，因此定义在非测试文件。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, ok := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	if !ok {
		return nil
	}
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// PoolService 把线程池的关闭挂到 Group 的生命周期上。
//
// ctx 取消后先调用 Shutdown 优雅关闭，最多等待 timeout；超时后池被强制关闭
// （丢弃队列并取消任务 context），再等待同样的 timeout 让 worker 退出。
// timeout <= 0 表示无限等待优雅关闭。
// 池在 ctx 取消前自行终止时直接返回 nil。
func PoolService(pool *xpool.Pool, timeout time.Duration, opts ...Option) func(ctx context.Context) error {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return func(ctx context.Context) error {
		if pool == nil {
			return ErrNilPool
		}
		select {
		case <-pool.Done():
			return nil
		case <-ctx.Done():
		}

		logger := o.logger.With(slog.String("pool", pool.Name()))
		logger.Info("pool shutting down", slog.Duration("timeout", timeout))

		err := shutdownWithin(timeout, pool.Shutdown)
		if err == nil {
			logger.Info("pool terminated")
			return nil
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		st := pool.Stats()
		logger.Warn("graceful shutdown timed out, forcing",
			slog.Int("active", st.ActiveTasks),
			slog.Int("queued", st.Queued),
		)
		err = shutdownWithin(timeout, func(c context.Context) error {
			dropped, err := pool.ShutdownNow(c)
			if dropped > 0 {
				logger.Warn("queued tasks dropped", slog.Int("count", dropped))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("xrun: pool %s did not terminate: %w", pool.Name(), err)
		}
		logger.Info("pool terminated")
		return nil
	}
}

func shutdownWithin(timeout time.Duration, fn func(context.Context) error) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// WatchService 在 Group 中运行配置热加载 watcher，ctx 取消时关闭 watcher 并返回 nil。
func WatchService(w *xconf.Watcher) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if w == nil {
			return ErrNilWatcher
		}
		return w.Run(ctx)
	}
}

// Ticker 按 interval 周期执行 fn，fn 返回错误时退出。immediate 为 true 时先执行一次。
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}
		if immediate {
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
