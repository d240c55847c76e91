// Package xlockpair 提供基于超时的成对加锁协议，用于在不约定全局加锁顺序的前提下避免死锁。
//
// AcquireBoth 先在 timeoutA 内获取锁 A，成功后在 timeoutB 内获取锁 B：
//   - A 超时：返回 SideA 的 *AcquireError，不持有任何锁
//   - B 超时：先释放 A，再返回 SideB 的 *AcquireError
//   - 都成功：返回 *Pair，Release 按 B、A 的逆序释放
//
// 两个 goroutine 以相反顺序请求同一对锁时不会永久互相等待：
// 任何一方拿不到第二把锁都会在超时后释放第一把锁。
// 打破循环等待的是超时，而不是加锁顺序。
//
// AcquireBothRetry 在超时后按带抖动的退避重试，使相反顺序的调用方错开节奏，
// 避免反复同时超时（活锁）。
//
// # 锁实现
//
//   - [Mutex]：进程内可超时互斥锁
//   - [Registry]：按名称分片管理的进程内锁表
//   - [RedisLocker]：基于 redsync 的跨进程锁
//   - [EtcdLocker]：基于 etcd concurrency.Mutex 的跨进程锁，每个实例独占一个 session
//
// 任何实现 [Locker] 的类型都可以参与成对加锁。Locker 实现须是可比较类型（通常为指针），
// 以便检测同一把锁被传入两次。
//
// # 作用域用法
//
//	err := xlockpair.WithBoth(ctx, a, b, 2*time.Second, 0, func(ctx context.Context) error {
//	    return transfer(ctx)
//	})
//
// fn 无论正常返回、返回错误还是 panic，两把锁都会被释放。
package xlockpair
