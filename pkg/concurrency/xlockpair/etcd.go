package xlockpair

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

const (
	defaultEtcdPrefix = "/xconc/lock/"
	defaultEtcdTTL    = 10 * time.Second
)

// EtcdOption 定义 EtcdFactory 可选配置函数类型。
type EtcdOption func(*etcdOptions)

type etcdOptions struct {
	keyPrefix     string
	ttl           time.Duration
	unlockTimeout time.Duration
}

// WithEtcdKeyPrefix 设置 etcd key 前缀，默认 "/xconc/lock/"。
func WithEtcdKeyPrefix(prefix string) EtcdOption {
	return func(o *etcdOptions) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithSessionTTL 设置 session 租约 TTL，默认 10s，按秒向上取整。
// 持有者崩溃后，锁在租约过期后释放。
func WithSessionTTL(d time.Duration) EtcdOption {
	return func(o *etcdOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithEtcdUnlockTimeout 设置 Unlock 访问 etcd 的超时，默认 5s。
func WithEtcdUnlockTimeout(d time.Duration) EtcdOption {
	return func(o *etcdOptions) {
		if d > 0 {
			o.unlockTimeout = d
		}
	}
}

// EtcdFactory 基于 etcd concurrency 包创建跨进程的 [EtcdLocker]。
type EtcdFactory struct {
	client *clientv3.Client
	opts   etcdOptions
}

// NewEtcdFactory 创建 etcd 锁工厂。client 由调用方管理生命周期。
func NewEtcdFactory(client *clientv3.Client, opts ...EtcdOption) (*EtcdFactory, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := etcdOptions{
		keyPrefix:     defaultEtcdPrefix,
		ttl:           defaultEtcdTTL,
		unlockTimeout: defaultUnlockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &EtcdFactory{client: client, opts: o}, nil
}

// Locker 返回名为 name 的 etcd 锁，并为其创建独立的 session。
//
// etcd 的锁在同一 session 内可重入，因此每个实例各持一个 session，
// 持有关系以实例为单位。不再使用时调用 [EtcdLocker.Close] 撤销租约。
// session 绑定 ctx，ctx 结束后停止续约。
func (f *EtcdFactory) Locker(ctx context.Context, name string) (*EtcdLocker, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	session, err := concurrency.NewSession(f.client,
		concurrency.WithTTL(ttlSeconds(f.opts.ttl)),
		concurrency.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("xlockpair: etcd session for %s: %w", name, err)
	}
	pfx := f.opts.keyPrefix + name
	return &EtcdLocker{
		name:          name,
		prefix:        pfx,
		session:       session,
		mutex:         concurrency.NewMutex(session, pfx),
		unlockTimeout: f.opts.unlockTimeout,
	}, nil
}

// Health 检查 etcd 连通性。
func (f *EtcdFactory) Health(ctx context.Context) error {
	_, err := f.client.Get(ctx, f.opts.keyPrefix, clientv3.WithLimit(1), clientv3.WithCountOnly())
	return err
}

func ttlSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	return max(s, 1)
}

// EtcdLocker 是基于 etcd 的 [Locker]。同一实例不可被多个 goroutine 同时加锁。
type EtcdLocker struct {
	name          string
	prefix        string
	session       *concurrency.Session
	mutex         *concurrency.Mutex
	unlockTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Lock 获取锁，直到成功或 ctx 结束。ctx 结束时返回 ctx.Err()。
// session 租约过期后返回包装的 concurrency.ErrSessionExpired。
func (l *EtcdLocker) Lock(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.mutex.Lock(ctx); err != nil {
		// 等待被 ctx 打断时 etcd 已删除本实例的排队 key。
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("xlockpair: etcd lock %s: %w", l.name, err)
	}
	return nil
}

// Unlock 释放锁。未持有时返回 ErrNotLocked。
func (l *EtcdLocker) Unlock() error {
	// 未加锁或已释放时 Key 为空或不带前缀。
	if !strings.HasPrefix(l.mutex.Key(), l.prefix) {
		return ErrNotLocked
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.unlockTimeout)
	defer cancel()

	if err := l.mutex.Unlock(ctx); err != nil {
		if errors.Is(err, concurrency.ErrLockReleased) {
			return ErrNotLocked
		}
		return fmt.Errorf("xlockpair: etcd unlock %s: %w", l.name, err)
	}
	return nil
}

// Name 返回锁名称。
func (l *EtcdLocker) Name() string {
	return l.name
}

// Key 返回持有锁时在 etcd 中的完整 key，未持有时为空。
func (l *EtcdLocker) Key() string {
	if k := l.mutex.Key(); strings.HasPrefix(k, l.prefix) {
		return k
	}
	return ""
}

// Close 撤销 session 租约，释放本实例持有的锁。重复调用返回首次结果。
func (l *EtcdLocker) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.session.Close()
	})
	return l.closeErr
}
