// Package ringq 提供定长的泛型 FIFO 环形队列。
//
// 本包是 internal 包，作为 xpool 的待执行队列和 xbuffer 的存储使用。
// Ring 自身不做同步，调用方需在持有互斥锁时访问。
package ringq

// Ring 是容量固定的 FIFO 环形队列。
// 零值不可用，需通过 New 创建。
type Ring[T any] struct {
	buf  []T
	head int
	size int
}

// New 创建容量为 capacity 的环形队列。
// capacity 为 0 时队列恒为满，负数按 0 处理。
func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Len 返回当前元素数量。
func (r *Ring[T]) Len() int { return r.size }

// Cap 返回容量。
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Full 报告队列是否已满。
func (r *Ring[T]) Full() bool { return r.size == len(r.buf) }

// PushBack 在队尾追加 v，队列已满时返回 false。
func (r *Ring[T]) PushBack(v T) bool {
	if r.Full() {
		return false
	}
	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
	return true
}

// PopFront 移除并返回队头元素。
func (r *Ring[T]) PopFront() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	// 清除引用，避免已出队元素无法被 GC 回收。
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return v, true
}

// Clear 丢弃全部元素，返回丢弃数量。
func (r *Ring[T]) Clear() int {
	n := r.size
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.size = 0, 0
	return n
}
