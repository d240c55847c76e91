package xlockpair

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.etcd.io/etcd/client/v3/concurrency"
)

func TestNewEtcdFactory_NilClient(t *testing.T) {
	_, err := NewEtcdFactory(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestEtcdFactory_LockerArgs(t *testing.T) {
	// 参数校验先于创建 session，不需要连接 etcd。
	f := &EtcdFactory{opts: etcdOptions{keyPrefix: defaultEtcdPrefix, ttl: defaultEtcdTTL}}

	_, err := f.Locker(nil, "a") //nolint:staticcheck // 测试 nil ctx
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = f.Locker(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestEtcdOptions(t *testing.T) {
	o := etcdOptions{keyPrefix: defaultEtcdPrefix, ttl: defaultEtcdTTL, unlockTimeout: defaultUnlockTimeout}
	for _, opt := range []EtcdOption{
		WithEtcdKeyPrefix("/it/"),
		WithSessionTTL(3 * time.Second),
		WithEtcdUnlockTimeout(time.Second),
		WithEtcdKeyPrefix(""),
		WithSessionTTL(0),
		WithEtcdUnlockTimeout(-1),
	} {
		opt(&o)
	}
	assert.Equal(t, etcdOptions{keyPrefix: "/it/", ttl: 3 * time.Second, unlockTimeout: time.Second}, o)
}

func TestTTLSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{10 * time.Second, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ttlSeconds(tt.in), "ttlSeconds(%s)", tt.in)
	}
}

func TestEtcdLocker_NotHeld(t *testing.T) {
	// 未加锁的 Mutex 不会访问 session。
	l := &EtcdLocker{
		name:   "orders",
		prefix: "/xconc/lock/orders",
		mutex:  concurrency.NewMutex(nil, "/xconc/lock/orders"),
	}
	assert.Equal(t, "orders", l.Name())
	assert.Empty(t, l.Key())
	assert.ErrorIs(t, l.Unlock(), ErrNotLocked)

	assert.ErrorIs(t, l.Lock(nil), ErrNilContext) //nolint:staticcheck // 测试 nil ctx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Lock(ctx), context.Canceled)
}
