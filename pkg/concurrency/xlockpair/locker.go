package xlockpair

import "context"

// Locker 是可参与成对加锁的锁。
type Locker interface {
	// Lock 获取锁，阻塞直到成功或 ctx 结束。ctx 结束时返回 ctx.Err()（可被包装）。
	Lock(ctx context.Context) error
	// Unlock 释放锁。锁未被持有时返回 ErrNotLocked。
	Unlock() error
	// Name 返回锁名称，用于错误与日志。
	Name() string
}

// Mutex 是可超时的进程内互斥锁，零值不可用，使用 [NewMutex] 创建。
//
// 底层是容量为 1 的 channel：发送成功即持有锁，接收即释放锁。
type Mutex struct {
	name string
	ch   chan struct{}
}

// NewMutex 创建名为 name 的互斥锁。
func NewMutex(name string) *Mutex {
	return &Mutex{name: name, ch: make(chan struct{}, 1)}
}

// Lock 获取锁，ctx 结束时返回 ctx.Err()。
func (m *Mutex) Lock(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock 尝试获取锁，不阻塞。
func (m *Mutex) TryLock() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock 释放锁。
func (m *Mutex) Unlock() error {
	select {
	case <-m.ch:
		return nil
	default:
		return ErrNotLocked
	}
}

// Locked 报告锁当前是否被持有。仅用于观测，结果可能立即过期。
func (m *Mutex) Locked() bool {
	return len(m.ch) == 1
}

// Name 返回锁名称。
func (m *Mutex) Name() string {
	return m.name
}
