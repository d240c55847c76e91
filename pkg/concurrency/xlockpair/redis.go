package xlockpair

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix     = "xconc:lock:"
	defaultExpiry        = 8 * time.Second
	defaultRetryDelay    = 50 * time.Millisecond
	defaultUnlockTimeout = 5 * time.Second
)

// RedisOption 定义 RedisFactory 可选配置函数类型。
type RedisOption func(*redisOptions)

type redisOptions struct {
	keyPrefix     string
	expiry        time.Duration
	retryDelay    time.Duration
	unlockTimeout time.Duration
}

// WithKeyPrefix 设置 Redis key 前缀，默认 "xconc:lock:"。
func WithKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.keyPrefix = prefix
	}
}

// WithExpiry 设置锁的过期时间，默认 8s。持有者崩溃后锁在过期后自动释放。
func WithExpiry(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		if d > 0 {
			o.expiry = d
		}
	}
}

// WithRetryDelay 设置锁被占用时两次尝试之间的间隔，默认 50ms。
func WithRetryDelay(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		if d > 0 {
			o.retryDelay = d
		}
	}
}

// WithUnlockTimeout 设置 Unlock 访问 Redis 的超时，默认 5s。
func WithUnlockTimeout(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		if d > 0 {
			o.unlockTimeout = d
		}
	}
}

// RedisFactory 基于 redsync 创建跨进程的 [RedisLocker]。
type RedisFactory struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	opts   redisOptions
}

// NewRedisFactory 创建 Redis 锁工厂。
func NewRedisFactory(client redis.UniversalClient, opts ...RedisOption) (*RedisFactory, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := redisOptions{
		keyPrefix:     defaultKeyPrefix,
		expiry:        defaultExpiry,
		retryDelay:    defaultRetryDelay,
		unlockTimeout: defaultUnlockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &RedisFactory{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   o,
	}, nil
}

// Locker 返回名为 name 的 Redis 锁。每次调用返回新实例，持有关系以实例为单位。
func (f *RedisFactory) Locker(name string) (*RedisLocker, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	key := f.opts.keyPrefix + name
	// 尝试次数不设上限，等待时长完全由 Lock 的 ctx 决定。
	mutex := f.rs.NewMutex(key,
		redsync.WithExpiry(f.opts.expiry),
		redsync.WithTries(math.MaxInt32),
		redsync.WithRetryDelay(f.opts.retryDelay),
		redsync.WithGenValueFunc(genValue),
	)
	return &RedisLocker{
		name:          name,
		key:           key,
		mutex:         mutex,
		unlockTimeout: f.opts.unlockTimeout,
	}, nil
}

// Health 检查 Redis 连通性。
func (f *RedisFactory) Health(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func genValue() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RedisLocker 是基于 Redis 的 [Locker]。
type RedisLocker struct {
	name          string
	key           string
	mutex         *redsync.Mutex
	unlockTimeout time.Duration
}

// Lock 获取锁，直到成功或 ctx 结束。ctx 结束时返回 ctx.Err()。
func (l *RedisLocker) Lock(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := l.mutex.LockContext(ctx); err != nil {
		// redsync 在 ctx 结束时返回 ErrFailed，这里还原为 ctx 错误。
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("xlockpair: redis lock %s: %w", l.name, err)
	}
	return nil
}

// Unlock 释放锁。锁已过期或被他人持有时返回 ErrNotLocked。
func (l *RedisLocker) Unlock() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.unlockTimeout)
	defer cancel()

	ok, err := l.mutex.UnlockContext(ctx)
	if err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrLockAlreadyExpired) || errors.As(err, &taken) {
			return ErrNotLocked
		}
		return fmt.Errorf("xlockpair: redis unlock %s: %w", l.name, err)
	}
	if !ok {
		return ErrNotLocked
	}
	return nil
}

// Name 返回锁名称。
func (l *RedisLocker) Name() string {
	return l.name
}

// Key 返回 Redis 中的完整 key。
func (l *RedisLocker) Key() string {
	return l.key
}
