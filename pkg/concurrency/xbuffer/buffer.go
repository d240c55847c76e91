package xbuffer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/omeyang/xconc/internal/ringq"
	"github.com/omeyang/xconc/internal/waitq"
	"github.com/omeyang/xconc/pkg/observability/xlog"
)

type signal = struct{}

// Buffer 是有界 FIFO 缓冲区，零值不可用，使用 [New] 创建。
type Buffer[T any] struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	items    *ringq.Ring[T]
	notFull  waitq.Queue[signal]
	notEmpty waitq.Queue[signal]
	closed   bool
}

// New 创建容量为 capacity 的缓冲区。
func New[T any](capacity int, opts ...Option) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	o := options{name: "xbuffer", logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Buffer[T]{
		name:   o.name,
		logger: o.logger,
		items:  ringq.New[T](capacity),
	}, nil
}

// Put 将 item 放入队尾，缓冲区满时阻塞。
func (b *Buffer[T]) Put(ctx context.Context, item T) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	b.mu.Lock()
	for {
		if b.closed {
			b.mu.Unlock()
			return ErrClosed
		}
		if b.items.PushBack(item) {
			b.notEmpty.Notify(signal{})
			b.mu.Unlock()
			return nil
		}
		if err := b.wait(ctx, &b.notFull); err != nil {
			b.mu.Unlock()
			return err
		}
	}
}

// Take 取出队头元素，缓冲区空时阻塞。
// 缓冲区关闭后仍可取出剩余元素，取完后返回 ErrClosed。
func (b *Buffer[T]) Take(ctx context.Context) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return zero, cancelled(err)
	}

	b.mu.Lock()
	for {
		if item, ok := b.items.PopFront(); ok {
			b.notFull.Notify(signal{})
			b.mu.Unlock()
			return item, nil
		}
		if b.closed {
			b.mu.Unlock()
			return zero, ErrClosed
		}
		if err := b.wait(ctx, &b.notEmpty); err != nil {
			b.mu.Unlock()
			return zero, err
		}
	}
}

// wait 在 q 上排队等待通知。进入与返回时都持有 b.mu。
// 被取消时若通知已送达，转交给下一个等待者，避免唤醒丢失。
func (b *Buffer[T]) wait(ctx context.Context, q *waitq.Queue[signal]) error {
	w := q.Push()
	b.mu.Unlock()

	var cause error
	select {
	case <-w.C():
	case <-ctx.Done():
		cause = ctx.Err()
	}

	b.mu.Lock()
	if cause == nil {
		return nil
	}
	if !q.Remove(w) {
		q.Notify(signal{})
	}
	return cancelled(cause)
}

// TryPut 不阻塞地放入 item。缓冲区满时返回 ErrFull。
func (b *Buffer[T]) TryPut(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if !b.items.PushBack(item) {
		return ErrFull
	}
	b.notEmpty.Notify(signal{})
	return nil
}

// TryTake 不阻塞地取出队头元素。缓冲区空时返回 ErrEmpty，已关闭且为空时返回 ErrClosed。
func (b *Buffer[T]) TryTake() (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.items.PopFront()
	if ok {
		b.notFull.Notify(signal{})
		return item, nil
	}
	if b.closed {
		return item, ErrClosed
	}
	return item, ErrEmpty
}

// Len 返回当前元素数量。
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Len()
}

// Cap 返回容量。
func (b *Buffer[T]) Cap() int {
	return b.items.Cap()
}

// Waiters 返回当前阻塞的生产者与消费者数量。
func (b *Buffer[T]) Waiters() (producers, consumers int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notFull.Len(), b.notEmpty.Len()
}

// Closed 报告缓冲区是否已关闭。
func (b *Buffer[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close 关闭缓冲区并唤醒所有等待者。重复关闭返回 ErrClosed。
func (b *Buffer[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	producers := b.notFull.NotifyAll(signal{})
	consumers := b.notEmpty.NotifyAll(signal{})
	remaining := b.items.Len()
	b.mu.Unlock()

	b.logger.Debug("xbuffer: closed",
		xlog.Component(b.name),
		xlog.Count(remaining),
		slog.Int("producers_woken", producers),
		slog.Int("consumers_woken", consumers))
	return nil
}
