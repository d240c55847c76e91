package xbuffer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity 表示容量不是正数。
	ErrInvalidCapacity = errors.New("xbuffer: capacity must be positive")

	// ErrCancelled 表示阻塞中的 Put/Take 被 ctx 取消。
	// 返回的错误同时包装 ctx.Err()，可用 errors.Is 判断是超时还是主动取消。
	ErrCancelled = errors.New("xbuffer: operation cancelled")

	// ErrClosed 表示缓冲区已关闭。
	ErrClosed = errors.New("xbuffer: buffer is closed")

	// ErrFull 表示 TryPut 时缓冲区已满。
	ErrFull = errors.New("xbuffer: buffer is full")

	// ErrEmpty 表示 TryTake 时缓冲区为空。
	ErrEmpty = errors.New("xbuffer: buffer is empty")

	// ErrNilContext 表示 context 参数为 nil。
	ErrNilContext = errors.New("xbuffer: nil context")
)

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
