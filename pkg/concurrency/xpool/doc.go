// Package xpool 提供有界 worker pool：核心/最大线程数、有界等待队列、拒绝策略与优雅关闭。
//
// 支持以下特性：
//   - CoreSize 个常驻 worker，空闲时无限等待新任务
//   - 超出 CoreSize、不超过 MaxSize 的临时 worker，空闲 IdleTimeout 后退出
//   - 容量为 QueueCapacity 的 FIFO 等待队列
//   - worker 与队列都饱和时按 RejectionPolicy 处理：
//     Abort、DiscardOldest、DiscardNewest、CallerRuns
//   - panic 恢复（单个任务失败不影响 pool，含堆栈日志）
//   - 优雅关闭 Shutdown(ctx) 与立即关闭 ShutdownNow(ctx)
//   - 运行时调整 SetCoreSize / SetMaxSize，或用 Resize 同时调整两者
//   - 可选的 xmetrics.Observer（每个任务一个跨度）与 OTel 指标
//
// # 提交流程
//
// Submit 按以下顺序决定任务去向：
//
//  1. 存活 worker < CoreSize：新建 worker 执行该任务
//  2. 有空闲 worker 在等待：直接交给它
//  3. 队列未满：入队
//  4. 存活 worker < MaxSize：新建临时 worker 执行该任务
//  5. 应用拒绝策略
//
// 第 2 步保证 QueueCapacity 为 0 时空闲的核心 worker 仍能接到任务。
//
// # 生命周期
//
//	StateRunning → StateShuttingDown → StateTerminated
//
// 只有 StateRunning 接受提交，其余状态返回 ErrPoolShutdown。
// Shutdown 等待队列与执行中的任务完成；ctx 到期后丢弃剩余队列、
// 取消任务 context 并返回 ctx.Err()，残留 worker 执行完当前任务后退出，
// 可通过 Done() 等待最终终止。ShutdownNow 立即清空队列并取消任务 context。
// 终止后再次关闭是空操作。
//
// # 注意事项
//
//   - Task 接收的 ctx 在 ShutdownNow 或关闭超时后被取消，长任务应监听 ctx.Done()
//   - CallerRuns 策略下任务在调用方 goroutine 执行，不计入 MaxSize
//   - DiscardNewest 与 DiscardOldest 是静默丢弃，仅体现在 Stats().Discarded
//   - Shutdown/Close 不可在任务内调用，否则会等待自身完成而死锁
//   - 不提供优先级，也不保证完成顺序；同一队列内任务按提交顺序开始执行
package xpool
