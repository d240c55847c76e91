package xpool

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/omeyang/xconc/pkg/concurrency/xpool"

// 指标名称。
const (
	MetricWorkers     = "xconc.pool.workers"
	MetricIdleWorkers = "xconc.pool.workers.idle"
	MetricActiveTasks = "xconc.pool.tasks.active"
	MetricQueueDepth  = "xconc.pool.queue.depth"
	MetricTasks       = "xconc.pool.tasks"
)

// 任务结果属性值（MetricTasks 的 outcome 属性）。
const (
	OutcomeSubmitted  = "submitted"
	OutcomeCompleted  = "completed"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
	OutcomeDiscarded  = "discarded"
	OutcomeCallerRuns = "caller_runs"
)

func (p *Pool) registerMetrics(mp metric.MeterProvider) (metric.Registration, error) {
	meter := mp.Meter(instrumentationName)

	workers, err := meter.Int64ObservableGauge(MetricWorkers,
		metric.WithDescription("Live workers"))
	if err != nil {
		return nil, err
	}
	idle, err := meter.Int64ObservableGauge(MetricIdleWorkers,
		metric.WithDescription("Workers waiting for a task"))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64ObservableGauge(MetricActiveTasks,
		metric.WithDescription("Tasks currently running"))
	if err != nil {
		return nil, err
	}
	queued, err := meter.Int64ObservableGauge(MetricQueueDepth,
		metric.WithDescription("Tasks waiting in the queue"))
	if err != nil {
		return nil, err
	}
	tasks, err := meter.Int64ObservableCounter(MetricTasks,
		metric.WithDescription("Tasks by outcome"))
	if err != nil {
		return nil, err
	}

	poolAttr := attribute.String("pool", p.opts.name)
	base := metric.WithAttributes(poolAttr)
	outcome := func(v string) metric.ObserveOption {
		return metric.WithAttributes(poolAttr, attribute.String("outcome", v))
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := p.Stats()
		o.ObserveInt64(workers, int64(s.Workers), base)
		o.ObserveInt64(idle, int64(s.IdleWorkers), base)
		o.ObserveInt64(active, int64(s.ActiveTasks), base)
		o.ObserveInt64(queued, int64(s.Queued), base)
		o.ObserveInt64(tasks, int64(s.Submitted), outcome(OutcomeSubmitted))
		o.ObserveInt64(tasks, int64(s.Completed), outcome(OutcomeCompleted))
		o.ObserveInt64(tasks, int64(s.Failed), outcome(OutcomeFailed))
		o.ObserveInt64(tasks, int64(s.Rejected), outcome(OutcomeRejected))
		o.ObserveInt64(tasks, int64(s.Discarded), outcome(OutcomeDiscarded))
		o.ObserveInt64(tasks, int64(s.CallerRuns), outcome(OutcomeCallerRuns))
		return nil
	}, workers, idle, active, queued, tasks)
}

func (p *Pool) unregisterMetrics() {
	p.metricsOnce.Do(func() {
		if p.metricsReg == nil {
			return
		}
		if err := p.metricsReg.Unregister(); err != nil {
			p.opts.logger.Warn("xpool: unregister metrics failed", slog.String("error", err.Error()))
		}
	})
}
