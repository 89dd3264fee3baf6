package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedPath labels requests that hit no route, so raw URLs never
// become label values.
const unmatchedPath = "unmatched"

// HTTP 采集 gin 请求指标。
type HTTP struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	size     *prometheus.HistogramVec
	inFlight prometheus.Gauge
	skip     map[string]bool
}

// NewHTTP registers the collectors on reg. Requests to skip paths are not
// observed.
func NewHTTP(reg prometheus.Registerer, skip ...string) *HTTP {
	m := &HTTP{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumekit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumekit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数。",
		}, []string{"method", "path", "status"}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumekit",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP 响应体大小分布，主要反映 PDF 下载。",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resumekit",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "当前正在处理的 HTTP 请求数量。",
		}),
		skip: map[string]bool{},
	}
	for _, p := range skip {
		m.skip[p] = true
	}
	reg.MustRegister(m.duration, m.total, m.size, m.inFlight)
	return m
}

// Middleware labels requests by route template.
func (m *HTTP) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		if m.skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.duration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.total.WithLabelValues(c.Request.Method, path, status).Inc()
		if n := c.Writer.Size(); n > 0 {
			m.size.WithLabelValues(path).Observe(float64(n))
		}
	}
}

var (
	defaultHTTPOnce sync.Once
	defaultHTTP     *HTTP
)

// GinMiddleware 使用默认 Registry，并跳过 /metrics 自身。
func GinMiddleware() gin.HandlerFunc {
	defaultHTTPOnce.Do(func() {
		defaultHTTP = NewHTTP(prometheus.DefaultRegisterer, "/metrics")
	})
	return defaultHTTP.Middleware()
}
