// Package waitq 提供可配合互斥锁使用的 FIFO 等待队列。
//
// 本包是 internal 包，供 xpool 和 xbuffer 实现"互斥锁 + 条件通知"。
// 与 sync.Cond 不同，等待方通过 channel 接收通知，因此可以与超时定时器
// 或 ctx.Done() 一起 select，实现有界等待和协作式取消。
//
// Queue 本身不加锁：Push、Notify、NotifyAll、Remove 必须在调用方的互斥锁内调用。
// 典型用法：
//
//	mu.Lock()
//	for !cond() {
//	    w := q.Push()
//	    mu.Unlock()
//	    select {
//	    case <-w.C():
//	    case <-ctx.Done():
//	    }
//	    mu.Lock()
//	    if !q.Remove(w) {
//	        // 已被通知，w.Value() 有效
//	    }
//	}
package waitq

import "container/list"

// Waiter 表示队列中的一个等待者。
type Waiter[T any] struct {
	ch       chan struct{}
	value    T
	notified bool
	elem     *list.Element
}

// C 返回通知 channel，被 Notify 选中后关闭。
func (w *Waiter[T]) C() <-chan struct{} { return w.ch }

// Value 返回通知时交付的值。
// 仅在 C() 关闭后，或持锁且 Remove 返回 false 时读取才有意义。
func (w *Waiter[T]) Value() T { return w.value }

// Queue 是 FIFO 等待队列，零值可用。
type Queue[T any] struct {
	l list.List
}

// Len 返回等待者数量。
func (q *Queue[T]) Len() int { return q.l.Len() }

// Push 在队尾加入一个新的等待者。
func (q *Queue[T]) Push() *Waiter[T] {
	w := &Waiter[T]{ch: make(chan struct{})}
	w.elem = q.l.PushBack(w)
	return w
}

// Notify 唤醒最早加入的等待者并交付 v。
// 队列为空时返回 false。
func (q *Queue[T]) Notify(v T) bool {
	front := q.l.Front()
	if front == nil {
		return false
	}
	w := q.l.Remove(front).(*Waiter[T])
	w.fire(v)
	return true
}

// NotifyAll 唤醒所有等待者，返回唤醒数量。
func (q *Queue[T]) NotifyAll(v T) int {
	n := 0
	for q.Notify(v) {
		n++
	}
	return n
}

// Remove 将放弃等待的 w 移出队列。
// 若 w 已被通知（不在队列中）返回 false，调用方需处理这次通知。
func (q *Queue[T]) Remove(w *Waiter[T]) bool {
	if w.notified {
		return false
	}
	q.l.Remove(w.elem)
	w.elem = nil
	return true
}

func (w *Waiter[T]) fire(v T) {
	w.value = v
	w.notified = true
	w.elem = nil
	close(w.ch)
}
