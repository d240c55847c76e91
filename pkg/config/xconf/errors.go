package xconf

import "errors"

var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 表示配置文件读取失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 表示配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrInvalidSettings 表示配置值校验失败。
	ErrInvalidSettings = errors.New("xconf: invalid settings")

	// ErrNilCallback 表示 Watch 的回调为 nil。
	ErrNilCallback = errors.New("xconf: watch callback cannot be nil")

	// ErrWatcherRunning 表示 Run 已在运行中。
	ErrWatcherRunning = errors.New("xconf: watcher already running")

	// ErrWatcherClosed 表示监视器已关闭。
	ErrWatcherClosed = errors.New("xconf: watcher closed")
)
