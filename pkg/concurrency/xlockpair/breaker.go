package xlockpair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerThreshold   uint32 = 5
	defaultBreakerOpenTimeout        = 30 * time.Second
)

// BreakerOption 定义 Breaker 可选配置函数类型。
type BreakerOption func(*breakerOptions)

type breakerOptions struct {
	threshold   uint32
	openTimeout time.Duration
	logger      *slog.Logger
}

// WithFailureThreshold 设置连续失败多少次后熔断，默认 5。
func WithFailureThreshold(n uint32) BreakerOption {
	return func(o *breakerOptions) {
		if n > 0 {
			o.threshold = n
		}
	}
}

// WithOpenTimeout 设置熔断后进入半开探测前的等待时长，默认 30s。
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(o *breakerOptions) {
		if d > 0 {
			o.openTimeout = d
		}
	}
}

// WithBreakerLogger 设置状态变化日志的 logger。
func WithBreakerLogger(l *slog.Logger) BreakerOption {
	return func(o *breakerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Breaker 是同一远程后端上多把锁共享的熔断器，基于 gobreaker 实现。
//
// 只有后端错误计入失败；等待超时、ctx 取消和 ErrNotLocked 视为成功，
// 锁竞争不会触发熔断。熔断期间 Lock 立即返回 ErrBackendUnavailable。
type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker 创建名为 name 的熔断器。
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	o := breakerOptions{
		threshold:   defaultBreakerThreshold,
		openTimeout: defaultBreakerOpenTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     o.openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.threshold
		},
		IsSuccessful: backendHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.logger.Warn("xlockpair: breaker state changed",
				slog.String("breaker", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})}
}

func backendHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrNotLocked)
}

// State 返回熔断器当前状态。
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Wrap 返回受 b 保护的 l。Unlock 不受熔断限制，始终访问后端，
// 避免熔断期间已持有的锁只能等待过期。
func (b *Breaker) Wrap(l Locker) Locker {
	return &breakerLocker{inner: l, b: b}
}

type breakerLocker struct {
	inner Locker
	b     *Breaker
}

func (l *breakerLocker) Lock(ctx context.Context) error {
	_, err := l.b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, l.inner.Lock(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, l.inner.Name(), err)
	}
	return err
}

func (l *breakerLocker) Unlock() error {
	return l.inner.Unlock()
}

func (l *breakerLocker) Name() string {
	return l.inner.Name()
}

// Unwrap 返回被包装的 Locker。
func (l *breakerLocker) Unwrap() Locker {
	return l.inner
}
