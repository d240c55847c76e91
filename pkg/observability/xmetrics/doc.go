// Package xmetrics 为并发组件提供统一的观测接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 仅定义最小化接口：Observer/Span/Attr。
// xpool 为每个任务开启一个跨度，xlockpair 为每次成对加锁开启一个跨度；
// 业务代码只依赖接口，默认实现基于 OpenTelemetry。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xpool",
//		Operation: "task",
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// # 指标命名
//
// 统一指标：
//   - xconc.operation.total
//   - xconc.operation.duration（单位 s）
//
// 统一属性：component / operation / status。
// status 取值：ok、error、panic、timeout、rejected。
package xmetrics
