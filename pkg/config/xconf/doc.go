// Package xconf 加载 xconc 组件的配置，基于 koanf 实现。
//
// 配置分为四节：
//
//	log:    日志级别、格式、滚动文件
//	pool:   worker pool 容量与拒绝策略（xpool.Config）
//	buffer: 有界缓冲区容量与演示参数
//	lock:   成对加锁的超时与重试参数，可选 Redis 或 etcd 后端
//
// 未出现在文件中的字段保留 [Defaults] 中的默认值。
// 时长字段使用 Go duration 写法（"10s"、"250ms"），
// 拒绝策略使用名称（abort、discard_oldest、discard_newest、caller_runs）。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 热重载
//
// [Watch] 监视配置文件所在目录（而非文件本身），兼容编辑器"写临时文件再 rename"的保存方式；
// 短时间内的多次变更经防抖后只触发一次重载。典型用法是把新的 pool 配置应用到
// 运行中的 Pool：
//
//	w, _ := xconf.Watch(path, func(s *xconf.Settings, err error) {
//	    if err != nil {
//	        return
//	    }
//	    _ = pool.Resize(s.Pool.CoreSize, s.Pool.MaxSize)
//	})
//	go w.Run(ctx)
//
// [Encode] 把 Settings 序列化回 YAML 或 JSON，输出可以再次被 [LoadBytes] 读取。
package xconf
