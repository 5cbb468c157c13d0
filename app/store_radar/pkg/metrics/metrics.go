package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "store_radar"

// Metrics 评分与告警相关指标
type Metrics struct {
	registry           *prometheus.Registry
	ScorecardsComputed *prometheus.CounterVec
	AlertsRaised       *prometheus.CounterVec
	AlertsDeduplicated prometheus.Counter
	OracleCalls        *prometheus.CounterVec
	OracleLatency      *prometheus.HistogramVec
}

// New 创建并注册到独立的 registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ScorecardsComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scorecards_computed_total",
			Help:      "Scorecard computations by analysis type and outcome.",
		}, []string{"analysis_type", "outcome"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "New alerts by severity.",
		}, []string{"severity"}),
		AlertsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_deduplicated_total",
			Help:      "Breaches skipped because an unresolved alert already exists.",
		}),
		OracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Scoring oracle calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		OracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_seconds",
			Help:      "Scoring oracle call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.ScorecardsComputed,
		m.AlertsRaised,
		m.AlertsDeduplicated,
		m.OracleCalls,
		m.OracleLatency,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveOracle 记录一次打分调用
func (m *Metrics) ObserveOracle(kind string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OracleCalls.WithLabelValues(kind, outcome).Inc()
	m.OracleLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
