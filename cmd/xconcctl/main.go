// xconcctl 是 xconc 并发原语的命令行演示工具。
//
// 用法:
//
//	xconcctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件路径（yaml/json），缺省使用内置默认值
//	    --log-level   日志级别 (debug/info/warn/error)
//	    --log-format  日志格式 (text/json)
//	    --log-file    日志文件路径，按大小轮转；缺省输出到 stderr
//
// 命令:
//
//	pool       向线程池提交任务，演示拒绝策略与两段式关闭
//	buffer     多生产者多消费者共享有界缓冲区
//	deadlock   两个 worker 以相反顺序获取同一对锁，演示超时避免死锁
//	config     输出生效配置
//
// 退出码:
//
//	0: 成功
//	1: 执行失败
//	2: 参数错误
//	130: 连续两次收到中断信号后强制退出
//
// 示例:
//
//	xconcctl pool --tasks 50 --policy caller_runs
//	xconcctl -c xconc.yaml pool --watch
//	xconcctl buffer --capacity 4 --producers 3 --consumers 2
//	xconcctl deadlock --timeout-a 1s --timeout-b 1s --hold 200ms
//	xconcctl deadlock --redis localhost:6379 --retry
//	xconcctl deadlock --etcd localhost:2379 --retry
//	xconcctl config --format json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandler(cancel)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	e := &env{out: stdout, errOut: stderr}
	app := createApp(e)

	err := app.Run(ctx, args)
	if cerr := e.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		return 0
	}

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// createApp 创建 CLI 应用。
func createApp(e *env) *cli.Command {
	return &cli.Command{
		Name:      "xconcctl",
		Usage:     "xconc 并发原语演示工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    e.out,
		ErrWriter: e.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径（按大小轮转）",
			},
		},
		Before:   e.setup,
		Commands: createCommands(e),
		// 由 run 统一映射退出码，不让 cli 直接 os.Exit。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		OnUsageError:   onUsageError,
	}
}

// setupSignalHandler 第一次 SIGINT/SIGTERM 取消 ctx 触发优雅关闭，第二次强制退出。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
