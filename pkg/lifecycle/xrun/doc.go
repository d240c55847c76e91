// Package xrun 提供基于 errgroup + context 的进程生命周期管理。
//
// # 概述
//
// xrun 基于 [errgroup] 构建，把线程池、配置热加载等长期运行的组件
// 组织成一个 Group：任一组件出错或收到终止信号时，context 被取消，
// 所有组件在 ctx.Done() 上感知并退出。
//
// # 快速开始
//
//	pool, _ := xpool.New(cfg)
//	watcher, _ := xconf.Watch(path, onReload)
//
//	err := xrun.Run(ctx,
//	    xrun.PoolService(pool, 5*time.Second),
//	    xrun.WatchService(watcher),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    log.Println("received signal, shutting down")
//	}
//
// PoolService 在 ctx 取消后执行两段式关闭：先 Shutdown 等待排队任务完成，
// 超时后 ShutdownNow 丢弃队列并取消任务 context。
//
// # 错误处理
//
// Wait 返回第一个非 nil 错误，并对 context.Canceled 做过滤：
//   - Group 被 Cancel(cause) 或信号取消时返回 cause（如 *SignalError）
//   - Group 被普通取消时返回 nil
//   - context.Canceled 来自服务内部（Group 未取消）时原样返回
//
// 直接使用 NewGroup 时不包含信号处理；Run/RunWithOptions/RunServices 默认监听
// DefaultSignals，可用 WithSignals 自定义或 WithoutSignalHandler 禁用。
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun
