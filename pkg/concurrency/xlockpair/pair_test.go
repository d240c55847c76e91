package xlockpair

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// gatedLocker 在获取底层锁后调用 after，用于构造两个调用方各持一把锁的交错。
type gatedLocker struct {
	*Mutex
	after func()
}

func (g *gatedLocker) Lock(ctx context.Context) error {
	if err := g.Mutex.Lock(ctx); err != nil {
		return err
	}
	g.after()
	return nil
}

func newMockPair(t *testing.T) (*MockLocker, *MockLocker) {
	t.Helper()
	ctrl := gomock.NewController(t)
	a := NewMockLocker(ctrl)
	b := NewMockLocker(ctrl)
	a.EXPECT().Name().Return("A").AnyTimes()
	b.EXPECT().Name().Return("B").AnyTimes()
	return a, b
}

func TestAcquireBoth_ReleasesInReverseOrder(t *testing.T) {
	a, b := newMockPair(t)
	gomock.InOrder(
		a.EXPECT().Lock(gomock.Any()).Return(nil),
		b.EXPECT().Lock(gomock.Any()).Return(nil),
		b.EXPECT().Unlock().Return(nil),
		a.EXPECT().Unlock().Return(nil),
	)

	pair, err := AcquireBoth(context.Background(), a, b, time.Second, time.Second, quiet())
	require.NoError(t, err)
	assert.True(t, pair.Held())
	assert.Same(t, a, pair.A())
	assert.Same(t, b, pair.B())

	require.NoError(t, pair.Release())
	assert.False(t, pair.Held())
	assert.ErrorIs(t, pair.Release(), ErrNotHeld)
}

func TestAcquireBoth_FailOnAHoldsNothing(t *testing.T) {
	a, b := newMockPair(t)
	a.EXPECT().Lock(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	pair, err := AcquireBoth(context.Background(), a, b, 20*time.Millisecond, time.Second, quiet())
	assert.Nil(t, pair)
	assert.Less(t, time.Since(start), time.Second)

	var acqErr *AcquireError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, SideA, acqErr.Which)
	assert.Equal(t, "A", acqErr.Lock)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "lock A (A) timed out")
}

func TestAcquireBoth_FailOnBReleasesA(t *testing.T) {
	a, b := newMockPair(t)
	gomock.InOrder(
		a.EXPECT().Lock(gomock.Any()).Return(nil),
		b.EXPECT().Lock(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		a.EXPECT().Unlock().Return(nil),
	)

	pair, err := AcquireBoth(context.Background(), a, b, time.Second, 20*time.Millisecond, quiet())
	assert.Nil(t, pair)

	var acqErr *AcquireError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, SideB, acqErr.Which)
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestAcquireBoth_NonTimeoutFailure(t *testing.T) {
	a, b := newMockPair(t)
	boom := errors.New("backend down")
	a.EXPECT().Lock(gomock.Any()).Return(boom)

	_, err := AcquireBoth(context.Background(), a, b, time.Second, 0, quiet())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimedOut)
	assert.Contains(t, err.Error(), "backend down")
}

func TestPair_ReleaseJoinsErrors(t *testing.T) {
	a, b := newMockPair(t)
	errB := errors.New("b unlock failed")
	gomock.InOrder(
		a.EXPECT().Lock(gomock.Any()).Return(nil),
		b.EXPECT().Lock(gomock.Any()).Return(nil),
		b.EXPECT().Unlock().Return(errB),
		a.EXPECT().Unlock().Return(nil),
	)

	pair, err := AcquireBoth(context.Background(), a, b, time.Second, 0, quiet())
	require.NoError(t, err)

	err = pair.Release()
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), "release lock B")
}

func TestAcquireBoth_SharedBudget(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")
	require.True(t, b.TryLock())

	start := time.Now()
	_, err := Acquire(context.Background(), a, b, 40*time.Millisecond, quiet())
	elapsed := time.Since(start)

	var acqErr *AcquireError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, SideB, acqErr.Which)
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.False(t, a.Locked(), "lock A must be released after B times out")
}

func TestAcquireBoth_ParentCancel(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")
	require.True(t, a.TryLock())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := AcquireBoth(ctx, a, b, 5*time.Second, 0, quiet())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimedOut)
}

func TestAcquireBoth_Validation(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")
	ctx := context.Background()

	//nolint:staticcheck // 验证 nil ctx 防护
	_, err := AcquireBoth(nil, a, b, time.Second, 0)
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = AcquireBoth(ctx, nil, b, time.Second, 0)
	assert.ErrorIs(t, err, ErrNilLocker)

	_, err = AcquireBoth(ctx, a, a, time.Second, 0)
	assert.ErrorIs(t, err, ErrSameLock)

	_, err = AcquireBoth(ctx, a, b, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidTimeout)

	assert.False(t, a.Locked())
	assert.False(t, b.Locked())
}

func TestAcquireBoth_OppositeOrderTerminates(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")

	// 两个调用方都拿到第一把锁之后才去请求第二把，构造循环等待。
	var firstHeld sync.WaitGroup
	firstHeld.Add(2)
	barrier := func() {
		firstHeld.Done()
		firstHeld.Wait()
	}
	gatedA := &gatedLocker{Mutex: a, after: barrier}
	gatedB := &gatedLocker{Mutex: b, after: barrier}

	type outcome struct {
		pair *Pair
		err  error
	}
	results := make(chan outcome, 2)
	go func() {
		p, err := AcquireBoth(context.Background(), gatedA, b, 100*time.Millisecond, 0, quiet())
		results <- outcome{p, err}
	}()
	go func() {
		p, err := AcquireBoth(context.Background(), gatedB, a, 100*time.Millisecond, 0, quiet())
		results <- outcome{p, err}
	}()

	timedOut := 0
	for range 2 {
		select {
		case r := <-results:
			if r.err != nil {
				var acqErr *AcquireError
				require.ErrorAs(t, r.err, &acqErr)
				assert.Equal(t, SideB, acqErr.Which)
				assert.ErrorIs(t, r.err, ErrTimedOut)
				timedOut++
				continue
			}
			require.NoError(t, r.pair.Release())
		case <-time.After(2 * time.Second):
			t.Fatal("opposite-order acquisition did not terminate")
		}
	}
	assert.GreaterOrEqual(t, timedOut, 1)
	assert.False(t, a.Locked())
	assert.False(t, b.Locked())
}

func TestAcquireBoth_OppositeOrderStress(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")
	done := make(chan struct{})

	var wg sync.WaitGroup
	worker := func(first, second Locker) {
		defer wg.Done()
		for range 50 {
			pair, err := AcquireBoth(context.Background(), first, second, 20*time.Millisecond, 0, quiet())
			if err != nil {
				assert.ErrorIs(t, err, ErrTimedOut)
				continue
			}
			assert.NoError(t, pair.Release())
		}
	}
	wg.Add(2)
	go worker(a, b)
	go worker(b, a)
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("stress run did not terminate")
	}
	assert.False(t, a.Locked())
	assert.False(t, b.Locked())
}

func TestWithBoth(t *testing.T) {
	a, b := NewMutex("a"), NewMutex("b")
	ctx := context.Background()

	err := WithBoth(ctx, a, b, time.Second, 0, func(context.Context) error {
		assert.True(t, a.Locked())
		assert.True(t, b.Locked())
		return nil
	}, quiet())
	require.NoError(t, err)
	assert.False(t, a.Locked())
	assert.False(t, b.Locked())

	fnErr := errors.New("critical section failed")
	err = WithBoth(ctx, a, b, time.Second, 0, func(context.Context) error { return fnErr }, quiet())
	assert.ErrorIs(t, err, fnErr)
	assert.False(t, a.Locked())

	assert.Panics(t, func() {
		_ = WithBoth(ctx, a, b, time.Second, 0, func(context.Context) error { panic("boom") }, quiet())
	})
	assert.False(t, a.Locked())
	assert.False(t, b.Locked())

	assert.ErrorIs(t, WithBoth(ctx, a, b, time.Second, 0, nil), ErrNilFunc)
}

func TestAcquireBoth_Observer(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	obs, err := xmetrics.NewOTelObserver(xmetrics.WithTracerProvider(tp))
	require.NoError(t, err)

	a, b := NewMutex("a"), NewMutex("b")
	pair, err := AcquireBoth(context.Background(), a, b, time.Second, 0, WithObserver(obs), quiet())
	require.NoError(t, err)
	require.NoError(t, pair.Release())

	require.True(t, b.TryLock())
	_, err = AcquireBoth(context.Background(), a, b, 10*time.Millisecond, 0, WithObserver(obs), quiet())
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "xlockpair.acquire_both", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Contains(t, spans[1].Status.Description, "timed out")
}

func TestSide_String(t *testing.T) {
	assert.Equal(t, "A", SideA.String())
	assert.Equal(t, "B", SideB.String())
}
