package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/omeyang/xconc/pkg/concurrency/xlockpair"
	"github.com/omeyang/xconc/pkg/config/xconf"
	"github.com/omeyang/xconc/pkg/lifecycle/xrun"
	"github.com/omeyang/xconc/pkg/observability/xlog"
	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

func createDeadlockCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "deadlock",
		Usage: "两个 worker 以相反顺序获取同一对锁，演示超时避免死锁",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout-a", Usage: "获取第一把锁的超时（覆盖配置）"},
			&cli.DurationFlag{Name: "timeout-b", Usage: "获取第二把锁的超时，0 与第一把共享预算（覆盖配置）"},
			&cli.DurationFlag{Name: "hold", Usage: "持有第一把锁后的处理时长（覆盖配置）"},
			&cli.IntFlag{Name: "rounds", Usage: "每个 worker 的尝试轮数", Value: 1},
			&cli.BoolFlag{Name: "retry", Usage: "超时后按退避加抖动重试"},
			&cli.UintFlag{Name: "attempts", Usage: "--retry 的最大尝试次数（覆盖配置）"},
			&cli.StringFlag{Name: "redis", Usage: "Redis 地址，设置后使用分布式锁（覆盖配置）"},
			&cli.StringSliceFlag{Name: "etcd", Usage: "etcd 端点，可重复或逗号分隔，设置后使用分布式锁（覆盖配置）"},
			&cli.StringFlag{Name: "lock-a", Usage: "第一把锁名称", Value: "lock-a"},
			&cli.StringFlag{Name: "lock-b", Usage: "第二把锁名称", Value: "lock-b"},
		},
		Action: e.runDeadlock,
	}
}

// lockPlan 描述一个 worker 的加锁方式。
type lockPlan struct {
	timeoutA, timeoutB time.Duration
	hold               time.Duration
	rounds             int
	retry              bool
	opts               []xlockpair.Option
}

// lockSource 为每个 worker 提供锁实例。进程内锁在 worker 间共享同一对象，
// Redis 与 etcd 锁每个 worker 各持一个实例，通过同名 key 互斥。
type lockSource func(name string) (xlockpair.Locker, error)

func (e *env) runDeadlock(ctx context.Context, cmd *cli.Command) error {
	s := e.settings.Lock
	if cmd.IsSet("timeout-a") {
		s.TimeoutA = cmd.Duration("timeout-a")
	}
	if cmd.IsSet("timeout-b") {
		s.TimeoutB = cmd.Duration("timeout-b")
	}
	if cmd.IsSet("hold") {
		s.Hold = cmd.Duration("hold")
	}
	if cmd.IsSet("attempts") {
		s.Attempts = cmd.Uint("attempts")
	}
	if cmd.IsSet("redis") {
		s.Redis.Addr = cmd.String("redis")
	}
	if cmd.IsSet("etcd") {
		s.Etcd.Endpoints = cmd.StringSlice("etcd")
	}
	if s.Redis.Addr != "" && len(s.Etcd.Endpoints) > 0 {
		return usagef("--redis and --etcd are mutually exclusive")
	}
	if s.TimeoutA <= 0 || s.TimeoutB < 0 || s.Hold < 0 {
		return usagef("need timeout-a > 0, timeout-b >= 0, hold >= 0")
	}
	rounds := cmd.Int("rounds")
	if rounds < 1 {
		return usagef("--rounds must be >= 1, got %d", rounds)
	}
	nameA, nameB := cmd.String("lock-a"), cmd.String("lock-b")
	if nameA == nameB {
		return usagef("--lock-a and --lock-b must differ")
	}

	source, closeSource, err := e.lockSource(ctx, s)
	if err != nil {
		return err
	}
	defer closeSource()

	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xconcctl"))
	if err != nil {
		return err
	}
	plan := lockPlan{
		timeoutA: s.TimeoutA,
		timeoutB: s.TimeoutB,
		hold:     s.Hold,
		rounds:   rounds,
		retry:    cmd.Bool("retry"),
		opts: []xlockpair.Option{
			xlockpair.WithLogger(e.logger),
			xlockpair.WithObserver(observer),
			xlockpair.WithAttempts(s.Attempts),
			xlockpair.WithBackoff(s.Backoff),
			xlockpair.WithMaxJitter(s.MaxJitter),
		},
	}

	rep := &report{}
	g, _ := xrun.NewGroup(ctx, xrun.WithLogger(e.logger), xrun.WithName("deadlock"))
	for id, names := range [][2]string{{nameA, nameB}, {nameB, nameA}} {
		g.GoWithName(fmt.Sprintf("worker-%d", id+1), func(ctx context.Context) error {
			first, err := source(names[0])
			if err != nil {
				return err
			}
			second, err := source(names[1])
			if err != nil {
				return err
			}
			return lockWorker(ctx, id+1, first, second, plan, rep)
		})
	}
	err = g.Wait()
	rep.print(e)
	return err
}

func (e *env) lockSource(ctx context.Context, s xconf.LockSettings) (lockSource, func(), error) {
	switch {
	case s.Redis.Addr != "":
		return e.redisSource(ctx, s.Redis, e.breaker("redis", s.Breaker))
	case len(s.Etcd.Endpoints) > 0:
		return e.etcdSource(ctx, s.Etcd, e.breaker("etcd", s.Breaker))
	}
	reg, err := xlockpair.NewRegistry()
	if err != nil {
		return nil, nil, err
	}
	return func(name string) (xlockpair.Locker, error) {
		return reg.Get(name)
	}, func() {}, nil
}

// breaker 创建一个后端内所有锁共享的熔断器。
func (e *env) breaker(name string, bs xconf.BreakerSettings) *xlockpair.Breaker {
	return xlockpair.NewBreaker(name,
		xlockpair.WithFailureThreshold(bs.Threshold),
		xlockpair.WithOpenTimeout(bs.OpenTimeout),
		xlockpair.WithBreakerLogger(e.logger),
	)
}

func (e *env) redisSource(ctx context.Context, rs xconf.RedisSettings, br *xlockpair.Breaker) (lockSource, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rs.Addr,
		Password: rs.Password,
		DB:       rs.DB,
	})
	closeClient := func() {
		if err := client.Close(); err != nil {
			e.logger.Warn("close redis client", xlog.Err(err))
		}
	}
	factory, err := xlockpair.NewRedisFactory(client,
		xlockpair.WithKeyPrefix(rs.KeyPrefix),
		xlockpair.WithExpiry(rs.Expiry),
	)
	if err == nil {
		err = factory.Health(ctx)
	}
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	return func(name string) (xlockpair.Locker, error) {
		l, err := factory.Locker(name)
		if err != nil {
			return nil, err
		}
		return br.Wrap(l), nil
	}, closeClient, nil
}

// etcdSource 为每次调用创建独立 session 的锁，关闭时撤销全部 session 再关闭客户端。
func (e *env) etcdSource(ctx context.Context, es xconf.EtcdSettings, br *xlockpair.Breaker) (lockSource, func(), error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   es.Endpoints,
		Username:    es.Username,
		Password:    es.Password,
		DialTimeout: es.DialTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("etcd client: %w", err)
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			e.logger.Warn("close etcd client", xlog.Err(err))
		}
	}
	factory, err := xlockpair.NewEtcdFactory(client,
		xlockpair.WithEtcdKeyPrefix(es.KeyPrefix),
		xlockpair.WithSessionTTL(es.TTL),
	)
	if err == nil {
		hctx, cancel := context.WithTimeout(ctx, es.DialTimeout)
		err = factory.Health(hctx)
		cancel()
	}
	if err != nil {
		closeClient()
		return nil, nil, err
	}

	var (
		mu      sync.Mutex
		lockers []*xlockpair.EtcdLocker
	)
	source := func(name string) (xlockpair.Locker, error) {
		l, err := factory.Locker(ctx, name)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		lockers = append(lockers, l)
		mu.Unlock()
		return br.Wrap(l), nil
	}
	closeAll := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, l := range lockers {
			if err := l.Close(); err != nil {
				e.logger.Warn("close etcd session", xlog.Err(err), xlog.Lock(l.Name()))
			}
		}
		closeClient()
	}
	return source, closeAll, nil
}

// lockWorker 按 plan.rounds 轮获取 (first, second)，成功后立即释放。
func lockWorker(ctx context.Context, id int, first, second xlockpair.Locker, plan lockPlan, rep *report) error {
	first = &holdingLocker{Locker: first, hold: plan.hold, stop: ctx.Done()}

	for round := range plan.rounds {
		var (
			pair *xlockpair.Pair
			err  error
		)
		if plan.retry {
			pair, err = xlockpair.AcquireBothRetry(ctx, first, second, plan.timeoutA, plan.opts...)
		} else {
			pair, err = xlockpair.AcquireBoth(ctx, first, second, plan.timeoutA, plan.timeoutB, plan.opts...)
		}

		var acqErr *xlockpair.AcquireError
		switch {
		case err == nil:
			rep.add(id, round, fmt.Sprintf("acquired %s then %s", first.Name(), second.Name()), true)
			if err := pair.Release(); err != nil {
				return err
			}
		case errors.Is(err, xlockpair.ErrTimedOut) && errors.As(err, &acqErr):
			rep.add(id, round, fmt.Sprintf("lock %s (%s) timed out, gave up", acqErr.Lock, acqErr.Which), false)
		default:
			return err
		}
	}
	return nil
}

// holdingLocker 在获取锁后停留 hold，模拟持有第一把锁时的业务处理。
type holdingLocker struct {
	xlockpair.Locker
	hold time.Duration
	stop <-chan struct{}
}

func (l *holdingLocker) Lock(ctx context.Context) error {
	if err := l.Locker.Lock(ctx); err != nil {
		return err
	}
	if l.hold <= 0 {
		return nil
	}
	t := time.NewTimer(l.hold)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-l.stop:
		_ = l.Locker.Unlock()
		return context.Canceled
	}
}

type reportLine struct {
	worker, round int
	text          string
}

// report 汇总两个 worker 的结果，按 worker、轮次排序输出。
type report struct {
	mu       sync.Mutex
	lines    []reportLine
	acquired int
	gaveUp   int
}

func (r *report) add(worker, round int, text string, acquired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, reportLine{worker, round, text})
	if acquired {
		r.acquired++
	} else {
		r.gaveUp++
	}
}

func (r *report) print(e *env) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for w := 1; w <= 2; w++ {
		for _, l := range r.lines {
			if l.worker == w {
				fmt.Fprintf(&b, "worker %d round %d: %s\n", l.worker, l.round+1, l.text)
			}
		}
	}
	fmt.Fprintf(&b, "acquired=%d gave_up=%d\n", r.acquired, r.gaveUp)
	_, _ = fmt.Fprint(e.out, b.String())
}
