// Package xlog 基于 log/slog 构建并发组件使用的结构化日志。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - 动态级别调整（共享 slog.LevelVar）
//   - 并发领域的便捷属性：Pool、Worker、Policy、Lock、Side 等
//   - 全局 Logger：Default / SetDefault
//
// # 创建 Logger
//
// Builder 采用 first-error-wins：遇到第一个配置错误后，后续 Set 操作的错误被忽略，
// Build 返回该错误。
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xconc.log", xlog.WithMaxSize(100)).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 各组件通过 WithLogger(*slog.Logger) 注入，未注入时使用 slog.Default()。
package xlog
