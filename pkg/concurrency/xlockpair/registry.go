package xlockpair

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultShardCount = 32
	maxShardCount     = 1 << 16
)

// RegistryOption 定义 Registry 可选配置函数类型。
type RegistryOption func(*registryOptions)

type registryOptions struct {
	shardCount int
	maxNames   int
}

// WithShardCount 设置分片数，须为 2 的幂，默认 32。
func WithShardCount(n int) RegistryOption {
	return func(o *registryOptions) {
		o.shardCount = n
	}
}

// WithMaxNames 限制锁名称数量，0 表示不限制。
func WithMaxNames(n int) RegistryOption {
	if n < 0 {
		n = 0
	}
	return func(o *registryOptions) {
		o.maxNames = n
	}
}

// Registry 按名称管理进程内互斥锁，同名总是返回同一把 *Mutex。
// 锁条目创建后常驻，适合名称集合有限的场景（账户、资源分区等）。
type Registry struct {
	shards []registryShard
	mask   uint64
	max    int
	count  atomic.Int64
}

type registryShard struct {
	mu    sync.Mutex
	locks map[string]*Mutex
}

// NewRegistry 创建锁表。
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	o := registryOptions{shardCount: defaultShardCount}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	sc := o.shardCount
	if sc <= 0 || sc > maxShardCount || sc&(sc-1) != 0 {
		return nil, fmt.Errorf("%w: must be a positive power of 2 (max %d), got %d",
			ErrInvalidShardCount, maxShardCount, sc)
	}

	r := &Registry{
		shards: make([]registryShard, sc),
		mask:   uint64(sc - 1),
		max:    o.maxNames,
	}
	for i := range r.shards {
		r.shards[i].locks = make(map[string]*Mutex)
	}
	return r, nil
}

func (r *Registry) shard(name string) *registryShard {
	return &r.shards[xxhash.Sum64String(name)&r.mask]
}

// Get 返回名为 name 的锁，不存在时创建。
func (r *Registry) Get(name string) (*Mutex, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	s := r.shard(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.locks[name]; ok {
		return m, nil
	}
	if r.max > 0 {
		// CAS 保证跨分片并发创建不突破上限。
		for {
			cur := r.count.Load()
			if cur >= int64(r.max) {
				return nil, ErrMaxNamesExceeded
			}
			if r.count.CompareAndSwap(cur, cur+1) {
				break
			}
		}
	} else {
		r.count.Add(1)
	}
	m := NewMutex(name)
	s.locks[name] = m
	return m, nil
}

// Pair 返回一对命名锁，便于直接传给 AcquireBoth。
func (r *Registry) Pair(nameA, nameB string) (a, b *Mutex, err error) {
	if a, err = r.Get(nameA); err != nil {
		return nil, nil, err
	}
	if b, err = r.Get(nameB); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Len 返回已创建的锁数量。
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Names 返回全部锁名称，按字典序排列。
func (r *Registry) Names() []string {
	names := make([]string, 0, r.Len())
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for name := range s.locks {
			names = append(names, name)
		}
		s.mu.Unlock()
	}
	slices.Sort(names)
	return names
}
