package xlockpair

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func fastRetry(attempts uint) []Option {
	return []Option{
		WithAttempts(attempts),
		WithBackoff(2 * time.Millisecond),
		WithMaxJitter(5 * time.Millisecond),
		quiet(),
	}
}

func TestAcquireBothRetry_SucceedsAfterRelease(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")
	require.True(t, b.TryLock())

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = b.Unlock()
	}()

	pair, err := AcquireBothRetry(context.Background(), a, b, 15*time.Millisecond, fastRetry(50)...)
	require.NoError(t, err)
	require.NoError(t, pair.Release())
}

func TestAcquireBothRetry_ExhaustsAttempts(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")
	require.True(t, b.TryLock())
	defer func() { _ = b.Unlock() }()

	_, err := AcquireBothRetry(context.Background(), a, b, 5*time.Millisecond, fastRetry(3)...)
	assert.ErrorIs(t, err, ErrTimedOut)

	var acqErr *AcquireError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, SideB, acqErr.Which)
	assert.False(t, a.Locked())
}

func TestAcquireBothRetry_NonTimeoutNotRetried(t *testing.T) {
	a, b := newMockPair(t)
	boom := errors.New("boom")
	a.EXPECT().Lock(gomock.Any()).Return(boom).Times(1)

	_, err := AcquireBothRetry(context.Background(), a, b, time.Second, fastRetry(5)...)
	assert.ErrorIs(t, err, boom)
}

func TestAcquireBothRetry_Validation(t *testing.T) {
	a := NewMutex("a")
	_, err := AcquireBothRetry(context.Background(), a, a, time.Second)
	assert.ErrorIs(t, err, ErrSameLock)

	_, err = AcquireBothRetry(context.Background(), a, NewMutex("b"), -time.Second)
	assert.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestAcquireBothRetry_OppositeOrderBothSucceed(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	run := func(first, second Locker) {
		defer wg.Done()
		pair, err := AcquireBothRetry(context.Background(), first, second, 20*time.Millisecond, fastRetry(100)...)
		if err != nil {
			errs <- err
			return
		}
		time.Sleep(5 * time.Millisecond)
		errs <- pair.Release()
	}
	wg.Add(2)
	go run(a, b)
	go run(b, a)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.False(t, a.Locked())
	assert.False(t, b.Locked())
}
