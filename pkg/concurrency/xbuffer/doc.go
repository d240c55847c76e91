// Package xbuffer 提供有界生产者/消费者缓冲区。
//
// Buffer 是容量固定的 FIFO 队列：
//   - Put 在缓冲区满时阻塞，直到有空位或 ctx 结束
//   - Take 在缓冲区空时阻塞，直到有数据或 ctx 结束
//   - TryPut / TryTake 不阻塞，分别返回 ErrFull / ErrEmpty
//   - Close 唤醒所有等待者；之后 Put 返回 ErrClosed，Take 取完剩余数据后返回 ErrClosed
//
// 阻塞中的调用被 ctx 取消时返回同时匹配 ErrCancelled 与 ctx.Err() 的错误，
// 缓冲区内容保持不变。等待的生产者之间、等待的消费者之间按到达顺序排队唤醒。
//
// 同一生产者写入的数据保持顺序；不同生产者并发写入的相对顺序由抢到锁的先后决定。
package xbuffer
