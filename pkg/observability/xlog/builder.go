package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认值。
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 30
)

// Builder 日志配置构建器。
type Builder struct {
	output    io.Writer
	levelVar  *slog.LevelVar
	format    string
	addSource bool
	rotator   *lumberjack.Logger
	attrs     []slog.Attr
	err       error
}

// New 创建配置构建器：stderr、Info 级别、text 格式。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// SetOutput 设置日志输出目标，nil 被忽略。
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别。
func (b *Builder) SetLevel(level slog.Level) *Builder {
	b.levelVar.Set(level)
	return b
}

// SetLevelString 通过字符串设置日志级别，见 [ParseLevel]。
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		return b.fail(err)
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json。空字符串视为 text。
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		return b.fail(fmt.Errorf("xlog: unknown format %q", format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置。
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetAttrs 设置每条日志都携带的固定属性，如服务名。
func (b *Builder) SetAttrs(attrs ...slog.Attr) *Builder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// RotationOption 配置文件轮转。
type RotationOption func(*lumberjack.Logger)

// WithMaxSize 设置单个日志文件最大大小（MB）。
func WithMaxSize(mb int) RotationOption {
	return func(l *lumberjack.Logger) { l.MaxSize = mb }
}

// WithMaxBackups 设置保留的备份文件数量。
func WithMaxBackups(n int) RotationOption {
	return func(l *lumberjack.Logger) { l.MaxBackups = n }
}

// WithMaxAge 设置备份保留天数。
func WithMaxAge(days int) RotationOption {
	return func(l *lumberjack.Logger) { l.MaxAge = days }
}

// WithCompress 设置是否 gzip 压缩备份。
func WithCompress(compress bool) RotationOption {
	return func(l *lumberjack.Logger) { l.Compress = compress }
}

// SetRotation 将日志写入按大小轮转的文件。
func (b *Builder) SetRotation(filename string, opts ...RotationOption) *Builder {
	if strings.TrimSpace(filename) == "" {
		return b.fail(ErrEmptyFilename)
	}
	l := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.MaxSize <= 0 || l.MaxBackups < 0 || l.MaxAge < 0 {
		return b.fail(fmt.Errorf("%w: max_size=%d max_backups=%d max_age=%d",
			ErrInvalidRotation, l.MaxSize, l.MaxBackups, l.MaxAge))
	}
	b.rotator = l
	b.output = l
	return b
}

// LevelVar 返回共享的级别变量，可在 Build 之后动态调整级别。
func (b *Builder) LevelVar() *slog.LevelVar {
	return b.levelVar
}

// Build 构建 Logger。
//
// 返回的 cleanup 用于关闭轮转文件，可重复调用。
func (b *Builder) Build() (*slog.Logger, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if len(b.attrs) > 0 {
		handler = handler.WithAttrs(b.attrs)
	}

	var once sync.Once
	rotator := b.rotator
	cleanup := func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
	return slog.New(handler), cleanup, nil
}

// ParseLevel 解析 debug/info/warn/warning/error（大小写不敏感）。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}
