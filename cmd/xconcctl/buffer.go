package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xconc/pkg/concurrency/xbuffer"
	"github.com/omeyang/xconc/pkg/lifecycle/xrun"
	"github.com/omeyang/xconc/pkg/observability/xlog"
)

func createBufferCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "buffer",
		Usage: "多生产者多消费者共享有界缓冲区",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "capacity", Usage: "缓冲区容量（覆盖配置）"},
			&cli.IntFlag{Name: "producers", Usage: "生产者数（覆盖配置）"},
			&cli.IntFlag{Name: "consumers", Usage: "消费者数（覆盖配置）"},
			&cli.IntFlag{Name: "items", Usage: "每个生产者生产的条目数（覆盖配置）"},
			&cli.DurationFlag{Name: "produce-delay", Usage: "每次 Put 之后的停顿"},
			&cli.DurationFlag{Name: "consume-delay", Usage: "每次 Take 之后的停顿"},
		},
		Action: e.runBuffer,
	}
}

func (e *env) runBuffer(ctx context.Context, cmd *cli.Command) error {
	s := e.settings.Buffer
	if cmd.IsSet("capacity") {
		s.Capacity = cmd.Int("capacity")
	}
	if cmd.IsSet("producers") {
		s.Producers = cmd.Int("producers")
	}
	if cmd.IsSet("consumers") {
		s.Consumers = cmd.Int("consumers")
	}
	if cmd.IsSet("items") {
		s.Items = cmd.Int("items")
	}
	if s.Producers < 1 || s.Consumers < 1 || s.Items < 0 {
		return usagef("need producers >= 1, consumers >= 1, items >= 0")
	}

	buf, err := xbuffer.New[int](s.Capacity, xbuffer.WithName("xconcctl"), xbuffer.WithLogger(e.logger))
	if err != nil {
		return &usageError{err: err}
	}

	produceDelay := cmd.Duration("produce-delay")
	consumeDelay := cmd.Duration("consume-delay")

	var (
		produced, consumed atomic.Int64
		sum                atomic.Int64
		producers          sync.WaitGroup
	)
	g, _ := xrun.NewGroup(ctx, xrun.WithLogger(e.logger), xrun.WithName("buffer"))

	for p := range s.Producers {
		producers.Add(1)
		g.GoWithName(fmt.Sprintf("producer-%d", p), func(ctx context.Context) error {
			defer producers.Done()
			for i := range s.Items {
				if err := buf.Put(ctx, p*s.Items+i); err != nil {
					return err
				}
				produced.Add(1)
				if err := pause(ctx, produceDelay); err != nil {
					return err
				}
			}
			return nil
		})
	}
	// 全部生产者结束后关闭缓冲区，消费者取完剩余条目后退出。
	g.Go(func(context.Context) error {
		producers.Wait()
		return buf.Close()
	})

	for c := range s.Consumers {
		g.GoWithName(fmt.Sprintf("consumer-%d", c), func(ctx context.Context) error {
			for {
				v, err := buf.Take(ctx)
				if errors.Is(err, xbuffer.ErrClosed) {
					return nil
				}
				if err != nil {
					return err
				}
				consumed.Add(1)
				sum.Add(int64(v))
				if err := pause(ctx, consumeDelay); err != nil {
					return err
				}
			}
		})
	}

	err = g.Wait()
	n := int64(s.Producers) * int64(s.Items)
	fmt.Fprintf(e.out, "produced=%d consumed=%d checksum_ok=%t\n",
		produced.Load(), consumed.Load(), sum.Load() == n*(n-1)/2)
	if err == nil && consumed.Load() != produced.Load() {
		e.logger.Warn("items lost", xlog.Count(int(produced.Load()-consumed.Load())))
	}
	return err
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
