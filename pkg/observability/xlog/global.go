package xlog

import (
	"log/slog"
	"sync/atomic"
)

// 全局 Logger，适用于 cmd 工具等简单场景。库代码应通过 WithLogger 注入。
var global atomic.Pointer[slog.Logger]

// Default 返回全局 Logger；未设置时返回 slog.Default()。
func Default() *slog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// SetDefault 替换全局 Logger，并同步为 slog 的默认 Logger。nil 被忽略。
func SetDefault(l *slog.Logger) {
	if l == nil {
		return
	}
	global.Store(l)
	slog.SetDefault(l)
}
