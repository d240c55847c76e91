// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog，支持按大小轮转
//   - xmetrics: 统一可观测性接口（指标、追踪），默认基于 OpenTelemetry
package observability
