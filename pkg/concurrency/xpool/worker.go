package xpool

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/omeyang/xconc/internal/waitq"
	"github.com/omeyang/xconc/pkg/observability/xlog"
	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

// startWorkerLocked 创建 worker，first 为其绑定的首个任务（可为 nil）。须持锁调用。
func (p *Pool) startWorkerLocked(first Task) {
	p.workers++
	p.nextID++
	go p.worker(p.nextID, first)
}

func (p *Pool) worker(id uint64, task Task) {
	p.opts.logger.Debug("xpool: worker started", xlog.Worker(id))
	for {
		if task != nil {
			p.runTask(id, task)
		}
		var ok bool
		if task, ok = p.getTask(id); !ok {
			return
		}
	}
}

// getTask 取下一个任务。返回 false 时 worker 已从计数中移除，应立即退出。
func (p *Pool) getTask(id uint64) (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	timedOut := false
	for {
		if p.stopping || (p.state != StateRunning && p.queue.Len() == 0) {
			p.exitWorkerLocked(id, "shutdown")
			return nil, false
		}
		if p.workers > p.cfg.MaxSize {
			p.exitWorkerLocked(id, "above max size")
			return nil, false
		}
		if task, ok := p.queue.PopFront(); ok {
			return task, true
		}
		if timedOut && p.workers > p.cfg.CoreSize {
			p.exitWorkerLocked(id, "idle timeout")
			return nil, false
		}

		timed := p.workers > p.cfg.CoreSize
		w := p.idle.Push()
		p.mu.Unlock()
		expired := p.awaitIdle(w, timed)
		p.mu.Lock()

		if p.idle.Remove(w) {
			timedOut = expired
			continue
		}
		// 已被通知：非 nil 值是直接交付的任务，nil 表示重新检查状态。
		timedOut = false
		if task := w.Value(); task != nil {
			if p.stopping {
				p.discarded.Add(1)
				p.opts.logger.Debug("xpool: handed-off task dropped", xlog.Worker(id))
				continue
			}
			return task, true
		}
	}
}

// awaitIdle 等待通知。timed 为 true 时最多等待 IdleTimeout，超时返回 true。
func (p *Pool) awaitIdle(w *waitq.Waiter[Task], timed bool) bool {
	if !timed {
		<-w.C()
		return false
	}
	timeout := p.idleTimeout()
	if timeout <= 0 {
		select {
		case <-w.C():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.C():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Pool) idleTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.IdleTimeout
}

// exitWorkerLocked 将 worker 从计数中移除；最后一个 worker 退出时完成终止。须持锁调用。
func (p *Pool) exitWorkerLocked(id uint64, reason string) {
	p.workers--
	p.opts.logger.Debug("xpool: worker exited", xlog.Worker(id), xlog.State(reason))
	if p.workers == 0 && p.state == StateShuttingDown {
		p.terminateLocked()
	}
}

// runTask 执行单个任务，恢复 panic 并上报失败。id 为 0 表示由调用方执行。
func (p *Pool) runTask(id uint64, task Task) {
	p.active.Add(1)
	defer p.active.Add(-1)

	ctx, span := xmetrics.Start(p.ctx, p.opts.observer, xmetrics.SpanOptions{
		Component: "xpool",
		Operation: "task",
		Attrs: []xmetrics.Attr{
			xmetrics.Pool(p.opts.name),
			xmetrics.Int64(xmetrics.AttrWorker, int64(id)),
		},
	})

	err := safeRun(ctx, task)
	if err == nil {
		p.completed.Add(1)
		span.End(xmetrics.Result{})
		return
	}

	p.failed.Add(1)
	var pe *PanicError
	if errors.As(err, &pe) {
		p.opts.logger.Error("xpool: task panic recovered",
			xlog.Worker(id), slog.Any("panic", pe.Value), xlog.Stack(pe.Stack))
		span.End(xmetrics.Result{Status: xmetrics.StatusPanic, Err: err})
	} else {
		p.opts.logger.Warn("xpool: task failed", xlog.Worker(id), xlog.Err(err))
		span.End(xmetrics.Result{Err: err})
	}
	if p.opts.onError != nil {
		p.opts.onError(err)
	}
}

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}
