package xpool

import (
	"context"
	"log/slog"

	"github.com/omeyang/xconc/pkg/observability/xlog"
)

// Shutdown 优雅关闭：拒绝新提交，等待队列与执行中的任务完成。
//
// ctx 到期时丢弃剩余队列、取消任务 context、唤醒空闲 worker 并返回 ctx.Err()；
// 此时执行中的任务仍可能在运行，可通过 Done() 等待最终终止。
// 终止后再次调用返回 nil。
func (p *Pool) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.beginShutdown(false)
	return p.awaitTermination(ctx)
}

// ShutdownNow 立即关闭：清空队列并取消任务 context，返回被丢弃的排队任务数，
// 然后像 Shutdown 一样等待 worker 退出。
// 在 Shutdown 进行中调用会将其升级为立即关闭。
//
// 已直接交付给空闲 worker、但 worker 尚未开始执行的任务不会运行，
// 计入 Stats().Discarded，不计入返回值。
func (p *Pool) ShutdownNow(ctx context.Context) (int, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}
	dropped := p.beginShutdown(true)
	return dropped, p.awaitTermination(ctx)
}

// Close 等价于 Shutdown(context.Background())，实现 io.Closer。
func (p *Pool) Close() error {
	return p.Shutdown(context.Background())
}

// beginShutdown 推进状态机并返回被丢弃的排队任务数。
func (p *Pool) beginShutdown(now bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.beginShutdownLocked(now)
}

func (p *Pool) beginShutdownLocked(now bool) int {
	if p.state == StateTerminated {
		return 0
	}
	if p.state == StateRunning {
		p.state = StateShuttingDown
		p.opts.logger.Info("xpool: shutting down",
			xlog.State(p.state.String()), slog.Bool("graceful", !now), xlog.Count(p.queue.Len()))
	}

	dropped := 0
	if now && !p.stopping {
		p.stopping = true
		dropped = p.queue.Clear()
		p.discarded.Add(uint64(dropped))
		p.cancel()
		if dropped > 0 {
			p.opts.logger.Warn("xpool: pending tasks dropped", xlog.Count(dropped))
		}
	}

	p.idle.NotifyAll(nil)
	if p.workers == 0 {
		p.terminateLocked()
	}
	return dropped
}

func (p *Pool) awaitTermination(ctx context.Context) error {
	select {
	case <-p.done:
		p.unregisterMetrics()
		return nil
	case <-ctx.Done():
		p.beginShutdown(true)
		p.unregisterOnTermination()
		return ctx.Err()
	}
}

// unregisterOnTermination 在 pool 最终终止后注销指标回调。
// 回调会获取 p.mu，因此注销不能在 terminateLocked 内进行。
func (p *Pool) unregisterOnTermination() {
	if p.metricsReg == nil {
		return
	}
	p.watchOnce.Do(func() {
		go func() {
			<-p.done
			p.unregisterMetrics()
		}()
	})
}

// terminateLocked 进入 StateTerminated。须持锁调用，且每个 pool 只会调用一次。
func (p *Pool) terminateLocked() {
	p.state = StateTerminated
	p.cancel()
	close(p.done)
	p.opts.logger.Info("xpool: terminated", xlog.State(p.state.String()))
}
