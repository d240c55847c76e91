package xpool

import "fmt"

// State 表示 pool 的生命周期状态。
type State int

const (
	// StateRunning 正常运行，接受提交。
	StateRunning State = iota
	// StateShuttingDown 关闭中，拒绝提交。
	StateShuttingDown
	// StateTerminated 已终止，所有 worker 已退出。
	StateTerminated
)

// String 返回状态名称。
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats 是 pool 运行状态的快照。
type Stats struct {
	State State
	// Workers 当前存活的 worker 数。
	Workers int
	// IdleWorkers 正在等待任务的 worker 数。
	IdleWorkers int
	// ActiveTasks 正在执行的任务数（含 CallerRuns 在调用方执行的任务）。
	ActiveTasks int
	// Queued 排队中的任务数。
	Queued int

	Submitted  uint64
	Completed  uint64
	Failed     uint64
	Rejected   uint64
	Discarded  uint64
	CallerRuns uint64
}

// Stats 返回当前统计快照。
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		State:       p.state,
		Workers:     p.workers,
		IdleWorkers: p.idle.Len(),
		Queued:      p.queue.Len(),
	}
	p.mu.Unlock()

	s.ActiveTasks = int(p.active.Load())
	s.Submitted = p.submitted.Load()
	s.Completed = p.completed.Load()
	s.Failed = p.failed.Load()
	s.Rejected = p.rejected.Load()
	s.Discarded = p.discarded.Load()
	s.CallerRuns = p.callerRuns.Load()
	return s
}
