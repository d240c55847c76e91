package xpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xconc/internal/ringq"
	"github.com/omeyang/xconc/internal/waitq"
	"github.com/omeyang/xconc/pkg/observability/xlog"
)

// Task 是提交给 pool 的工作单元。
// ctx 是 pool 的任务 context，在 ShutdownNow 或关闭超时后被取消。
type Task func(ctx context.Context) error

// Func 将无参闭包适配为 Task。fn 为 nil 时返回 nil。
func Func(fn func()) Task {
	if fn == nil {
		return nil
	}
	return func(context.Context) error {
		fn()
		return nil
	}
}

// Pool 是有界 worker pool。
//
// 队列、worker 计数与生命周期状态由同一把互斥锁保护。
// 任务计数使用原子变量，读取 Stats 不阻塞提交路径之外的 worker。
type Pool struct {
	opts options

	mu       sync.Mutex
	cfg      Config
	queue    *ringq.Ring[Task]
	idle     waitq.Queue[Task]
	workers  int
	nextID   uint64
	state    State
	stopping bool // 非优雅停止：worker 不再消费队列

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	active     atomic.Int64
	submitted  atomic.Uint64
	completed  atomic.Uint64
	failed     atomic.Uint64
	rejected   atomic.Uint64
	discarded  atomic.Uint64
	callerRuns atomic.Uint64

	metricsReg  metric.Registration
	metricsOnce sync.Once
	watchOnce   sync.Once
}

// New 创建 worker pool。
//
// 创建时不启动 worker，首批任务提交时按需创建；
// 需要预热时调用 [Pool.PrestartCoreWorkers]。
func New(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.logger = o.logger.With(xlog.Pool(o.name))

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		opts:   o,
		cfg:    cfg,
		queue:  ringq.New[Task](cfg.QueueCapacity),
		state:  StateRunning,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if o.meterProvider != nil {
		reg, err := p.registerMetrics(o.meterProvider)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("xpool: register metrics: %w", err)
		}
		p.metricsReg = reg
	}
	return p, nil
}

// Name 返回 pool 名称。
func (p *Pool) Name() string {
	return p.opts.name
}

// Submit 提交任务。
//
// 返回 nil 表示任务已被接受（执行、排队，或按 DiscardNewest 策略静默丢弃）；
// PolicyCallerRuns 下任务在当前 goroutine 执行完毕后才返回。
// 饱和时返回 ErrPoolSaturated，关闭后返回 ErrPoolShutdown。
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	p.submitted.Add(1)

	if p.workers < p.cfg.CoreSize {
		p.startWorkerLocked(task)
		p.mu.Unlock()
		return nil
	}

	// 有 worker 空闲时队列必为空，直接交付。
	if p.queue.Len() == 0 && p.idle.Notify(task) {
		p.mu.Unlock()
		return nil
	}

	if p.queue.PushBack(task) {
		if p.workers == 0 {
			p.startWorkerLocked(nil)
		}
		p.mu.Unlock()
		return nil
	}

	if p.workers < p.cfg.MaxSize {
		p.startWorkerLocked(task)
		p.mu.Unlock()
		return nil
	}

	return p.rejectLocked(task)
}

// rejectLocked 在持锁状态下进入，返回前释放锁。
func (p *Pool) rejectLocked(task Task) error {
	policy := p.cfg.Policy
	switch policy {
	case PolicyDiscardOldest:
		if _, ok := p.queue.PopFront(); ok {
			p.queue.PushBack(task)
			p.mu.Unlock()
			p.discarded.Add(1)
			p.opts.logger.Debug("xpool: discarded oldest pending task", xlog.Policy(policy.String()))
			return nil
		}
		p.mu.Unlock()
		p.rejected.Add(1)
		return ErrPoolSaturated

	case PolicyDiscardNewest:
		p.mu.Unlock()
		p.discarded.Add(1)
		p.opts.logger.Debug("xpool: discarded newest task", xlog.Policy(policy.String()))
		return nil

	case PolicyCallerRuns:
		p.mu.Unlock()
		p.callerRuns.Add(1)
		p.runTask(0, task)
		return nil

	default:
		p.mu.Unlock()
		p.rejected.Add(1)
		p.opts.logger.Debug("xpool: task rejected", xlog.Policy(policy.String()))
		return ErrPoolSaturated
	}
}

// PrestartCoreWorkers 启动全部核心 worker，返回新启动的数量。
func (p *Pool) PrestartCoreWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return 0
	}
	n := 0
	for p.workers < p.cfg.CoreSize {
		p.startWorkerLocked(nil)
		n++
	}
	return n
}

// SetCoreSize 运行时调整核心 worker 数。
// 调大时若队列有积压会立即补足 worker；调小时多余的空闲 worker 按 IdleTimeout 退出。
func (p *Pool) SetCoreSize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return ErrPoolShutdown
	}
	if n < 0 || n > p.cfg.MaxSize {
		return fmt.Errorf("%w: core_size %d out of range [0, %d]", ErrInvalidConfig, n, p.cfg.MaxSize)
	}

	old := p.cfg.CoreSize
	p.cfg.CoreSize = n
	if n > old {
		for need := min(n-p.workers, p.queue.Len()); need > 0; need-- {
			p.startWorkerLocked(nil)
		}
	} else if n < old {
		// 唤醒空闲 worker 重新判断是否超出核心数。
		p.idle.NotifyAll(nil)
	}
	p.opts.logger.Info("xpool: core size changed", slog.Int("old", old), slog.Int("new", n))
	return nil
}

// SetMaxSize 运行时调整 worker 上限。n 须 >= 1 且不小于当前 CoreSize。
// 超出新上限的 worker 在下次取任务时退出，执行中的任务不受影响。
func (p *Pool) SetMaxSize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return ErrPoolShutdown
	}
	if n < 1 || n < p.cfg.CoreSize {
		return fmt.Errorf("%w: max_size %d must be >= max(1, core_size %d)", ErrInvalidConfig, n, p.cfg.CoreSize)
	}

	old := p.cfg.MaxSize
	p.cfg.MaxSize = n
	if p.workers > n {
		p.idle.NotifyAll(nil)
	}
	p.opts.logger.Info("xpool: max size changed", slog.Int("old", old), slog.Int("new", n))
	return nil
}

// Resize 同时调整核心数与上限，用于配置热加载。
// 两步调整的顺序保证中间状态始终满足 core <= max。
func (p *Pool) Resize(coreSize, maxSize int) error {
	if coreSize < 0 || maxSize < 1 || coreSize > maxSize {
		return fmt.Errorf("%w: resize to core_size %d max_size %d", ErrInvalidConfig, coreSize, maxSize)
	}
	if maxSize >= p.Config().MaxSize {
		if err := p.SetMaxSize(maxSize); err != nil {
			return err
		}
		return p.SetCoreSize(coreSize)
	}
	if err := p.SetCoreSize(coreSize); err != nil {
		return err
	}
	return p.SetMaxSize(maxSize)
}

// Config 返回当前生效的配置（包含运行时调整）。
func (p *Pool) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Done 返回在 pool 终止时关闭的 channel。
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// State 返回当前生命周期状态。
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
