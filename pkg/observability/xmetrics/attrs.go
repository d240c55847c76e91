package xmetrics

import "time"

// 并发组件通用属性键。
const (
	AttrPool   = "pool"
	AttrPolicy = "policy"
	AttrLock   = "lock"
	AttrSide   = "side"
	AttrWorker = "worker"
)

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Int 创建整数属性。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Int64 创建 int64 属性。
func Int64(key string, value int64) Attr {
	return Attr{Key: key, Value: value}
}

// Duration 创建时间间隔属性，以纳秒写入。
func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

// Pool 创建 pool 名称属性。
func Pool(name string) Attr {
	return String(AttrPool, name)
}

// Lock 创建锁名称属性。
func Lock(name string) Attr {
	return String(AttrLock, name)
}
