package xlockpair

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/omeyang/xconc/pkg/observability/xlog"
)

// AcquireBothRetry 以 timeout 为每次尝试的预算调用 Acquire，超时后按指数退避加随机抖动重试。
//
// 只有超时会重试；其他错误（包括父 ctx 取消）立即返回。
// 抖动让以相反顺序加锁的调用方错开重试时间，避免一再同时超时。
// 尝试次数耗尽后返回最后一次的 *AcquireError。
func AcquireBothRetry(ctx context.Context, a, b Locker, timeout time.Duration, opts ...Option) (*Pair, error) {
	if err := validate(ctx, a, b, timeout); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	var pair *Pair
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.Delay(o.backoff),
		retry.MaxJitter(o.maxJitter),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrTimedOut)
		}),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Debug("xlockpair: retrying pair acquisition",
				slog.Uint64("attempt", uint64(n)+1),
				xlog.Lock(a.Name()+"+"+b.Name()),
				xlog.Err(err))
		}),
	).Do(func() error {
		p, err := acquireBoth(ctx, a, b, timeout, 0, &o)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}
