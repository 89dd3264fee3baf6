package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline 采集文档构建与下载交付的指标，实现 pipeline.Metrics 与 delivery.Metrics。
type Pipeline struct {
	builds     *prometheus.CounterVec
	attempts   *prometheus.HistogramVec
	duration   *prometheus.HistogramVec
	discards   *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	sessions   prometheus.Gauge
}

// NewPipeline registers the collectors on reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	m := &Pipeline{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumekit",
			Subsystem: "pipeline",
			Name:      "builds_total",
			Help:      "文档构建结果总数。",
		}, []string{"template", "outcome"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumekit",
			Subsystem: "pipeline",
			Name:      "build_attempts",
			Help:      "每次构建使用的尝试次数。",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumekit",
			Subsystem: "pipeline",
			Name:      "build_duration_seconds",
			Help:      "构建耗时分布（秒），包含重试。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15},
		}, []string{"template"}),
		discards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumekit",
			Subsystem: "pipeline",
			Name:      "discarded_builds_total",
			Help:      "因输入更新而丢弃的过期构建数。",
		}, []string{"template"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumekit",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "下载交付策略的尝试结果。",
		}, []string{"strategy", "outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resumekit",
			Subsystem: "control",
			Name:      "sessions_open",
			Help:      "当前打开的预览会话数。",
		}),
	}
	reg.MustRegister(m.builds, m.attempts, m.duration, m.discards, m.deliveries, m.sessions)
	return m
}

func (m *Pipeline) ObserveBuild(template, outcome string, attempts int, elapsed time.Duration) {
	m.builds.WithLabelValues(template, outcome).Inc()
	m.attempts.WithLabelValues(outcome).Observe(float64(attempts))
	m.duration.WithLabelValues(template).Observe(elapsed.Seconds())
}

func (m *Pipeline) ObserveDiscard(template string) {
	m.discards.WithLabelValues(template).Inc()
}

func (m *Pipeline) ObserveDelivery(strategy, outcome string) {
	m.deliveries.WithLabelValues(strategy, outcome).Inc()
}

// SetSessions reports the number of open sessions.
func (m *Pipeline) SetSessions(n int) {
	m.sessions.Set(float64(n))
}
