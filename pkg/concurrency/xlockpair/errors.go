package xlockpair

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimedOut 表示在限定时间内未能获取锁。
	// 通过 errors.Is(err, ErrTimedOut) 判断 *AcquireError 是否由超时引起。
	ErrTimedOut = errors.New("xlockpair: lock acquisition timed out")

	// ErrNotLocked 表示解锁一把未被持有的锁。
	ErrNotLocked = errors.New("xlockpair: lock not held")

	// ErrNotHeld 表示 Pair 已被释放，重复 Release 返回此错误。
	ErrNotHeld = errors.New("xlockpair: pair already released")

	// ErrSameLock 表示 A 和 B 是同一把锁。
	ErrSameLock = errors.New("xlockpair: lock A and lock B are the same lock")

	// ErrNilLocker 表示传入了 nil Locker。
	ErrNilLocker = errors.New("xlockpair: locker cannot be nil")

	// ErrNilFunc 表示 WithBoth 的 fn 为 nil。
	ErrNilFunc = errors.New("xlockpair: fn cannot be nil")

	// ErrNilContext 表示 context 参数为 nil。
	ErrNilContext = errors.New("xlockpair: nil context")

	// ErrInvalidTimeout 表示超时参数不是正数。
	ErrInvalidTimeout = errors.New("xlockpair: timeout must be positive")

	// ErrEmptyName 表示锁名称为空。
	ErrEmptyName = errors.New("xlockpair: lock name cannot be empty")

	// ErrMaxNamesExceeded 表示 Registry 已达到名称数量上限。
	ErrMaxNamesExceeded = errors.New("xlockpair: max lock names exceeded")

	// ErrInvalidShardCount 表示分片数不是 2 的幂。
	ErrInvalidShardCount = errors.New("xlockpair: invalid shard count")

	// ErrBackendUnavailable 表示远程锁后端已熔断，Lock 未访问后端即返回。
	ErrBackendUnavailable = errors.New("xlockpair: lock backend unavailable")

	// ErrNilClient 表示 Redis 或 etcd 客户端为 nil。
	ErrNilClient = errors.New("xlockpair: client cannot be nil")
)

// Side 标识成对加锁中的锁位置。
type Side int

const (
	// SideA 第一把锁。
	SideA Side = iota
	// SideB 第二把锁。
	SideB
)

// String 返回 "A" 或 "B"。
func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// AcquireError 描述成对加锁中某一把锁获取失败。
// 返回该错误时调用方不持有任何一把锁。
type AcquireError struct {
	// Which 失败的锁位置。
	Which Side
	// Lock 失败的锁名称。
	Lock string
	// Cause 底层原因，通常是 context.DeadlineExceeded 或 context.Canceled。
	Cause error
}

// Error 实现 error 接口。
func (e *AcquireError) Error() string {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return fmt.Sprintf("xlockpair: lock %s (%s) timed out", e.Which, e.Lock)
	}
	return fmt.Sprintf("xlockpair: acquire lock %s (%s): %v", e.Which, e.Lock, e.Cause)
}

// Unwrap 返回底层原因。
func (e *AcquireError) Unwrap() error {
	return e.Cause
}

// Is 使超时引起的失败匹配 ErrTimedOut。
func (e *AcquireError) Is(target error) bool {
	return target == ErrTimedOut && errors.Is(e.Cause, context.DeadlineExceeded)
}
