package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xconc/pkg/config/xconf"
	"github.com/omeyang/xconc/pkg/observability/xlog"
)

// usageError 表示参数错误，对应退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// env 保存命令共享的运行环境，在根命令的 Before 中初始化。
type env struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	settings   *xconf.Settings
	logger     *slog.Logger
	closeLog   func() error
}

// setup 加载配置、叠加全局 flag 并构建 logger。
func (e *env) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	e.configPath = cmd.String("config")

	var settings *xconf.Settings
	if e.configPath != "" {
		s, err := xconf.Load(e.configPath)
		if err != nil {
			return ctx, err
		}
		settings = s
	} else {
		s := xconf.Defaults()
		settings = &s
	}

	if cmd.IsSet("log-level") {
		settings.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		settings.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		settings.Log.File = cmd.String("log-file")
	}

	logger, closeLog, err := newLogger(settings.Log, e.errOut)
	if err != nil {
		return ctx, &usageError{err: err}
	}
	e.settings = settings
	e.logger = logger
	e.closeLog = closeLog
	xlog.SetDefault(logger)
	return ctx, nil
}

func (e *env) close() error {
	if e.closeLog == nil {
		return nil
	}
	return e.closeLog()
}

func newLogger(s xconf.LogSettings, stderr io.Writer) (*slog.Logger, func() error, error) {
	b := xlog.New().
		SetOutput(stderr).
		SetLevelString(s.Level).
		SetFormat(s.Format).
		SetAddSource(s.AddSource).
		SetAttrs(xlog.Component("xconcctl"))
	if s.File != "" {
		b = b.SetRotation(s.File,
			xlog.WithMaxSize(s.MaxSizeMB),
			xlog.WithMaxBackups(s.MaxBackups),
			xlog.WithMaxAge(s.MaxAgeDays),
			xlog.WithCompress(s.Compress),
		)
	}
	return b.Build()
}

// createCommands 创建所有子命令。
func createCommands(e *env) []*cli.Command {
	cmds := []*cli.Command{
		createPoolCommand(e),
		createBufferCommand(e),
		createDeadlockCommand(e),
		createConfigCommand(e),
	}
	for _, c := range cmds {
		c.OnUsageError = onUsageError
	}
	return cmds
}

// onUsageError 把 flag 解析错误标记为参数错误。
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{err: err}
}

func createConfigCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "输出生效配置（文件 + 默认值 + 全局 flag）",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "输出格式 (yaml/json)",
				Value: string(xconf.FormatYAML),
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			format := xconf.Format(cmd.String("format"))
			if format != xconf.FormatYAML && format != xconf.FormatJSON {
				return usagef("unknown format %q", format)
			}
			data, err := xconf.Encode(e.settings, format)
			if err != nil {
				return err
			}
			_, err = e.out.Write(data)
			if err == nil && format == xconf.FormatJSON {
				_, err = fmt.Fprintln(e.out)
			}
			return err
		},
	}
}
