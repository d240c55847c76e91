package xpool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolSaturated 表示 worker 与队列都已饱和，提交被拒绝（任务未执行）。
	ErrPoolSaturated = errors.New("xpool: pool is saturated")

	// ErrPoolShutdown 表示 pool 已开始关闭，不再接受提交。
	ErrPoolShutdown = errors.New("xpool: pool is shut down")

	// ErrNilTask 表示提交了 nil 任务。
	ErrNilTask = errors.New("xpool: task cannot be nil")

	// ErrInvalidConfig 表示 Config 无效。
	ErrInvalidConfig = errors.New("xpool: invalid config")

	// ErrNilContext 表示 context 参数为 nil。
	ErrNilContext = errors.New("xpool: nil context")

	// ErrTaskPanic 表示任务 panic 后被恢复。
	ErrTaskPanic = errors.New("xpool: task panicked")
)

// PanicError 记录任务 panic 的值与堆栈。
// errors.Is(err, ErrTaskPanic) 为 true。
type PanicError struct {
	Value any
	Stack []byte
}

// Error 实现 error 接口。
func (e *PanicError) Error() string {
	return fmt.Sprintf("xpool: task panicked: %v", e.Value)
}

// Is 支持 errors.Is(err, ErrTaskPanic)。
func (e *PanicError) Is(target error) bool {
	return target == ErrTaskPanic
}
