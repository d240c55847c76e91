// Package concurrency 提供并发原语子包。
//
// 子包列表：
//   - xpool: 核心/最大 worker 数可调的线程池，支持有界队列、拒绝策略与两段式关闭
//   - xbuffer: 基于条件等待的有界阻塞缓冲区，适用于多生产者多消费者
//   - xlockpair: 带超时的成对加锁，以相反顺序加锁时超时放弃而非死锁
package concurrency
