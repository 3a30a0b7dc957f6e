// Package metrics 汇总服务暴露给 Prometheus 的指标。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
// 使用独立 Registry，测试中可重复创建
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	classOffPurged  prometheus.Counter
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routine_desk",
			Name:      "http_requests_total",
			Help:      "HTTP 请求总数",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "routine_desk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routine_desk",
			Name:      "upstream_requests_total",
			Help:      "后端 API 调用次数",
		}, []string{"op", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "routine_desk",
			Name:      "upstream_request_duration_seconds",
			Help:      "后端 API 调用耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routine_desk",
			Name:      "state_persist_failures_total",
			Help:      "状态持久化失败次数",
		}, []string{"key", "op"}),
		classOffPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routine_desk",
			Name:      "class_off_purged_total",
			Help:      "每日清理移除的停课记录数",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpLatency,
		m.upstreamCalls,
		m.upstreamLatency,
		m.persistFailures,
		m.classOffPurged,
	)
	return m
}

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 暴露底层 Registry，测试中采集指标
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveUpstream 记录一次后端调用，outcome: ok | http_error | network_error | no_token
func (m *Metrics) ObserveUpstream(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(op, outcome).Inc()
	m.upstreamLatency.WithLabelValues(op).Observe(d.Seconds())
}

// PersistFailed 记录一次状态持久化失败
func (m *Metrics) PersistFailed(key, op string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(key, op).Inc()
}

// ClassOffPurged 记录每日清理移除的记录数
func (m *Metrics) ClassOffPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.classOffPurged.Add(float64(n))
}
