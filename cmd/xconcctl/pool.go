package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xconc/pkg/concurrency/xpool"
	"github.com/omeyang/xconc/pkg/config/xconf"
	"github.com/omeyang/xconc/pkg/lifecycle/xrun"
	"github.com/omeyang/xconc/pkg/observability/xlog"
	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

func createPoolCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "pool",
		Usage: "向线程池提交任务，演示拒绝策略与两段式关闭",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tasks", Aliases: []string{"n"}, Usage: "提交的任务数", Value: 20},
			&cli.DurationFlag{Name: "task-duration", Usage: "每个任务的执行时长", Value: 100 * time.Millisecond},
			&cli.IntFlag{Name: "core", Usage: "核心 worker 数（覆盖配置）"},
			&cli.IntFlag{Name: "max", Usage: "最大 worker 数（覆盖配置）"},
			&cli.IntFlag{Name: "queue", Usage: "队列容量（覆盖配置）"},
			&cli.DurationFlag{Name: "idle-timeout", Usage: "非核心 worker 空闲超时（覆盖配置）"},
			&cli.StringFlag{Name: "policy", Usage: "拒绝策略 abort/discard_oldest/discard_newest/caller_runs（覆盖配置）"},
			&cli.DurationFlag{Name: "shutdown-timeout", Usage: "优雅关闭等待时长，超时后强制关闭", Value: 5 * time.Second},
			&cli.DurationFlag{Name: "stats-interval", Usage: "周期输出统计的间隔，0 关闭"},
			&cli.BoolFlag{Name: "watch", Usage: "监视 --config 文件并热更新 pool 大小"},
		},
		Action: e.runPool,
	}
}

func poolConfig(base xpool.Config, cmd *cli.Command) (xpool.Config, error) {
	cfg := base
	if cmd.IsSet("core") {
		cfg.CoreSize = cmd.Int("core")
	}
	if cmd.IsSet("max") {
		cfg.MaxSize = cmd.Int("max")
	}
	if cmd.IsSet("queue") {
		cfg.QueueCapacity = cmd.Int("queue")
	}
	if cmd.IsSet("idle-timeout") {
		cfg.IdleTimeout = cmd.Duration("idle-timeout")
	}
	if cmd.IsSet("policy") {
		policy, err := xpool.ParsePolicy(cmd.String("policy"))
		if err != nil {
			return cfg, &usageError{err: err}
		}
		cfg.Policy = policy
	}
	if err := cfg.Validate(); err != nil {
		return cfg, &usageError{err: err}
	}
	return cfg, nil
}

func (e *env) runPool(ctx context.Context, cmd *cli.Command) error {
	cfg, err := poolConfig(e.settings.Pool, cmd)
	if err != nil {
		return err
	}
	tasks := cmd.Int("tasks")
	if tasks < 0 {
		return usagef("--tasks must be >= 0, got %d", tasks)
	}
	if cmd.Bool("watch") && e.configPath == "" {
		return usagef("--watch requires --config")
	}

	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xconcctl"))
	if err != nil {
		return err
	}
	pool, err := xpool.New(cfg,
		xpool.WithName("xconcctl"),
		xpool.WithLogger(e.logger),
		xpool.WithObserver(observer),
		xpool.WithErrorHandler(func(err error) {
			e.logger.Debug("task failed", xlog.Err(err))
		}),
	)
	if err != nil {
		return err
	}

	logger := e.logger.With(xlog.Pool(pool.Name()))
	g, _ := xrun.NewGroup(ctx, xrun.WithLogger(e.logger), xrun.WithName("pool"))
	g.GoWithName("pool", xrun.PoolService(pool, cmd.Duration("shutdown-timeout"), xrun.WithLogger(e.logger)))

	if interval := cmd.Duration("stats-interval"); interval > 0 {
		g.GoWithName("stats", xrun.Ticker(interval, false, func(context.Context) error {
			logStats(logger, pool.Stats())
			return nil
		}))
	}

	if cmd.Bool("watch") {
		w, err := xconf.Watch(e.configPath, func(s *xconf.Settings, err error) {
			if err != nil {
				logger.Warn("config reload failed", xlog.Err(err))
				return
			}
			if err := pool.Resize(s.Pool.CoreSize, s.Pool.MaxSize); err != nil {
				logger.Warn("pool resize failed", xlog.Err(err))
			}
		}, xconf.WithWatchLogger(e.logger))
		if err != nil {
			_, _ = pool.ShutdownNow(context.Background())
			return err
		}
		g.GoWithName("watch", xrun.WatchService(w))
	}

	duration := cmd.Duration("task-duration")
	g.GoWithName("submit", func(ctx context.Context) error {
		for i := range tasks {
			if ctx.Err() != nil {
				break
			}
			err := pool.Submit(sleepTask(duration))
			if err != nil && !errors.Is(err, xpool.ErrPoolSaturated) {
				return fmt.Errorf("submit task %d: %w", i, err)
			}
		}
		// 不带 --watch 时提交完成即开始关闭；带 --watch 时等待信号。
		if !cmd.Bool("watch") {
			g.Cancel(nil)
		}
		return nil
	})

	err = g.Wait()
	printStats(e, pool.Stats())
	return err
}

// sleepTask 模拟耗时任务，任务 context 取消时提前返回。
func sleepTask(d time.Duration) xpool.Task {
	return func(ctx context.Context) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func logStats(logger *slog.Logger, st xpool.Stats) {
	logger.Info("pool stats",
		xlog.State(st.State.String()),
		slog.Int("workers", st.Workers),
		slog.Int("idle", st.IdleWorkers),
		slog.Int("active", st.ActiveTasks),
		slog.Int("queued", st.Queued),
	)
}

func printStats(e *env, st xpool.Stats) {
	fmt.Fprintf(e.out, "state=%s submitted=%d completed=%d failed=%d rejected=%d discarded=%d caller_runs=%d\n",
		st.State, st.Submitted, st.Completed, st.Failed, st.Rejected, st.Discarded, st.CallerRuns)
}
