package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Task outcomes.
const (
	TaskOK        = "ok"
	TaskFailed    = "failed"
	TaskSkipRetry = "skip_retry"
	TaskCanceled  = "canceled"
)

// Tasks 采集 asynq 任务处理指标。
type Tasks struct {
	processed  *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inProgress *prometheus.GaugeVec
}

func NewTasks(reg prometheus.Registerer) *Tasks {
	m := &Tasks{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumekit",
			Subsystem: "asynq",
			Name:      "tasks_processed_total",
			Help:      "按结果统计的任务处理总数。",
		}, []string{"task_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumekit",
			Subsystem: "asynq",
			Name:      "task_duration_seconds",
			Help:      "任务处理耗时分布（秒）。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"task_type"}),
		inProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "resumekit",
			Subsystem: "asynq",
			Name:      "tasks_in_progress",
			Help:      "当前正在处理的任务数量。",
		}, []string{"task_type"}),
	}
	reg.MustRegister(m.processed, m.duration, m.inProgress)
	return m
}

func taskOutcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return TaskOK
	case errors.Is(err, asynq.SkipRetry):
		return TaskSkipRetry
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return TaskCanceled
	default:
		return TaskFailed
	}
}

// Middleware 记录任务耗时与结果。
func (m *Tasks) Middleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			m.inProgress.WithLabelValues(taskType).Inc()
			defer m.inProgress.WithLabelValues(taskType).Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			m.duration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			m.processed.WithLabelValues(taskType, taskOutcome(ctx, err)).Inc()
			return err
		})
	}
}

var (
	defaultTasksOnce sync.Once
	defaultTasks     *Tasks
)

// AsynqMetricsMiddleware 使用默认 Registry 记录 Asynq 任务处理指标。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	defaultTasksOnce.Do(func() {
		defaultTasks = NewTasks(prometheus.DefaultRegisterer)
	})
	return defaultTasks.Middleware()
}
