package xpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xconc/pkg/observability/xmetrics"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// taskOutcomes 返回 xconc.pool.tasks 按 outcome 汇总的值。
func taskOutcomes(t *testing.T, rm metricdata.ResourceMetrics) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != MetricTasks {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("outcome"))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func gaugeValue(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			g, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok)
			if len(g.DataPoints) == 0 {
				return 0, false
			}
			return g.DataPoints[0].Value, true
		}
	}
	return 0, false
}

func TestMetrics_ObservableInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 1},
		WithName("metered"), WithMeterProvider(mp))

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	require.NoError(t, p.Submit(blockingTask(started, release)))
	<-started
	require.NoError(t, p.Submit(func(context.Context) error { return errors.New("fail") }))
	assert.ErrorIs(t, p.Submit(Func(func() {})), ErrPoolSaturated)

	rm := collect(t, reader)
	workers, ok := gaugeValue(t, rm, MetricWorkers)
	require.True(t, ok)
	assert.Equal(t, int64(1), workers)
	depth, ok := gaugeValue(t, rm, MetricQueueDepth)
	require.True(t, ok)
	assert.Equal(t, int64(1), depth)

	close(release)
	require.NoError(t, p.Close())

	// 终止后回调已注销，不再产生数据点。
	rm = collect(t, reader)
	_, ok = gaugeValue(t, rm, MetricWorkers)
	assert.False(t, ok)
}

func TestMetrics_UnregisteredAfterTimedOutShutdown(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 1}, WithMeterProvider(mp))

	// 任务忽略 context 取消，使 Shutdown 超时后 pool 仍未终止。
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	_, ok := gaugeValue(t, collect(t, reader), MetricWorkers)
	assert.True(t, ok, "instruments reported while the pool is still running a task")

	close(release)
	<-p.Done()

	assert.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			return false
		}
		for _, sm := range rm.ScopeMetrics {
			if len(sm.Metrics) > 0 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
}

func TestMetrics_TaskOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 4}, WithMeterProvider(mp))
	require.NoError(t, p.Submit(Func(func() {})))
	require.NoError(t, p.Submit(func(context.Context) error { return errors.New("fail") }))

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	started := make(chan struct{}, 1)
	require.NoError(t, p.Submit(blockingTask(started, release)))
	<-started

	outcomes := taskOutcomes(t, collect(t, reader))
	assert.Equal(t, int64(3), outcomes[OutcomeSubmitted])
	assert.Equal(t, int64(1), outcomes[OutcomeCompleted])
	assert.Equal(t, int64(1), outcomes[OutcomeFailed])
	assert.Zero(t, outcomes[OutcomeRejected])
}

func TestObserver_SpanPerTask(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	obs, err := xmetrics.NewOTelObserver(xmetrics.WithTracerProvider(tp))
	require.NoError(t, err)

	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 4}, WithObserver(obs))
	require.NoError(t, p.Submit(Func(func() {})))
	require.NoError(t, p.Submit(func(context.Context) error { return errors.New("fail") }))
	require.NoError(t, p.Submit(Func(func() { panic("p") })))
	require.NoError(t, p.Close())

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	for _, s := range spans {
		assert.Equal(t, "xpool.task", s.Name)
	}
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, codes.Error, spans[2].Status.Code)
}
