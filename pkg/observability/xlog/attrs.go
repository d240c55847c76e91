package xlog

import (
	"log/slog"
	"time"
)

// 标准字段名。
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyPool      = "pool"
	KeyWorker    = "worker"
	KeyPolicy    = "policy"
	KeyLock      = "lock"
	KeySide      = "side"
	KeyState     = "state"
)

// Err 创建错误属性。err 为 nil 时返回空属性，slog 会忽略它。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出形如 "1.5s"。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Count 创建计数属性。
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Component 创建组件名属性。
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Pool 创建 worker pool 名称属性。
func Pool(name string) slog.Attr {
	return slog.String(KeyPool, name)
}

// Worker 创建 worker 编号属性。
func Worker(id uint64) slog.Attr {
	return slog.Uint64(KeyWorker, id)
}

// Policy 创建拒绝策略属性。
func Policy(name string) slog.Attr {
	return slog.String(KeyPolicy, name)
}

// Lock 创建锁名称属性。
func Lock(name string) slog.Attr {
	return slog.String(KeyLock, name)
}

// Side 创建成对加锁中的锁位置属性（A / B）。
func Side(s string) slog.Attr {
	return slog.String(KeySide, s)
}

// State 创建生命周期状态属性。
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// Stack 创建堆栈属性。
func Stack(stack []byte) slog.Attr {
	return slog.String(KeyStack, string(stack))
}
