package xconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// WatchCallback 在配置文件变更并重新加载后调用。
// err 非 nil 时 s 为 nil，调用方应继续使用旧配置。
type WatchCallback func(s *Settings, err error)

// WatchOption 定义监视器可选配置函数类型。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WithDebounce 设置防抖时间，默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithWatchLogger 设置监视器日志记录器。默认使用 slog.Default()。
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(o *watchOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Watcher 监视配置文件并在变更时重新加载。
type Watcher struct {
	path     string
	filename string
	fs       *fsnotify.Watcher
	callback WatchCallback
	opts     watchOptions

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	running bool
}

// Watch 创建配置文件监视器。调用 [Watcher.Run] 开始监视。
func Watch(path string, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if callback == nil {
		return nil, ErrNilCallback
	}
	if _, err := DetectFormat(path); err != nil {
		return nil, err
	}

	o := watchOptions{debounce: defaultDebounce, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: failed to create watcher: %w", err)
	}
	// 监视目录：编辑器保存时可能先删除再创建文件，直接监视文件会丢失事件。
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(
			fmt.Errorf("xconf: failed to watch directory %s: %w", dir, err),
			fsw.Close(),
		)
	}

	return &Watcher{
		path:     path,
		filename: filepath.Base(path),
		fs:       fsw,
		callback: callback,
		opts:     o,
	}, nil
}

// Path 返回被监视的配置文件路径。
func (w *Watcher) Path() string {
	return w.path
}

// Run 阻塞监视直到 ctx 结束或 Close 被调用，返回前关闭底层 watcher。
// ctx 结束时返回 nil。
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() { _ = w.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.opts.logger.Warn("xconf: watch error", slog.String("path", w.path), slog.String("error", err.Error()))
			w.callback(nil, fmt.Errorf("xconf: watch error: %w", err))
		}
	}
}

// Close 停止监视。Close 之后不再触发新的回调。重复调用返回 nil。
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return w.fs.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != w.filename {
		return
	}
	// Write：直接修改；Create：新建文件；Rename：写临时文件后替换。
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	s, err := Load(w.path)
	if err != nil {
		w.opts.logger.Warn("xconf: reload failed", slog.String("path", w.path), slog.String("error", err.Error()))
		w.callback(nil, err)
		return
	}
	w.opts.logger.Info("xconf: config reloaded", slog.String("path", w.path))
	w.callback(s, nil)
}
