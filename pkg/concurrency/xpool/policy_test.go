package xpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saturate 让单 worker pool 的 worker 阻塞在 release 上，并按 queued 个数填满队列。
func saturate(t *testing.T, p *Pool, release <-chan struct{}, queued ...Task) {
	t.Helper()
	started := make(chan struct{}, 1)
	require.NoError(t, p.Submit(blockingTask(started, release)))
	<-started
	for _, task := range queued {
		require.NoError(t, p.Submit(task))
	}
}

func TestPolicy_DiscardOldest(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 1, Policy: PolicyDiscardOldest})

	var oldest, newest atomic.Bool
	release := make(chan struct{})
	saturate(t, p, release, Func(func() { oldest.Store(true) }))

	require.NoError(t, p.Submit(Func(func() { newest.Store(true) })))
	close(release)
	require.NoError(t, p.Close())

	assert.False(t, oldest.Load(), "evicted head must not run")
	assert.True(t, newest.Load())
	assert.Equal(t, uint64(1), p.Stats().Discarded)
}

func TestPolicy_DiscardOldestEmptyQueueAborts(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 0, Policy: PolicyDiscardOldest})

	release := make(chan struct{})
	saturate(t, p, release)

	assert.ErrorIs(t, p.Submit(Func(func() {})), ErrPoolSaturated)
	assert.Equal(t, uint64(1), p.Stats().Rejected)
	close(release)
	require.NoError(t, p.Close())
}

func TestPolicy_DiscardNewest(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 1, Policy: PolicyDiscardNewest})

	var queued, dropped atomic.Bool
	release := make(chan struct{})
	saturate(t, p, release, Func(func() { queued.Store(true) }))

	require.NoError(t, p.Submit(Func(func() { dropped.Store(true) })))
	close(release)
	require.NoError(t, p.Close())

	assert.True(t, queued.Load())
	assert.False(t, dropped.Load())
	assert.Equal(t, uint64(1), p.Stats().Discarded)
	assert.Zero(t, p.Stats().Rejected)
}

func TestPolicy_CallerRuns(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 0, Policy: PolicyCallerRuns})

	release := make(chan struct{})
	saturate(t, p, release)

	var ran bool
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		ran = true
		return nil
	}))
	// Submit 返回时任务已在调用方执行完毕。
	assert.True(t, ran)
	assert.Equal(t, uint64(1), p.Stats().CallerRuns)

	close(release)
	require.NoError(t, p.Close())
	assert.Equal(t, uint64(2), p.Stats().Completed)
}

func TestPolicy_CallerRunsRecoversPanic(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, Policy: PolicyCallerRuns})

	release := make(chan struct{})
	saturate(t, p, release)

	require.NotPanics(t, func() {
		require.NoError(t, p.Submit(Func(func() { panic("caller side") })))
	})
	assert.Equal(t, uint64(1), p.Stats().Failed)

	close(release)
	require.NoError(t, p.Close())
}
