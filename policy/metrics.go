//go:build !nometrics

package policy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps policy specific Prometheus metrics.
type Metrics struct {
	rejections *prometheus.CounterVec
	budgetHit  prometheus.Counter
	clients    prometheus.Gauge
}

// MetricsOption allows customizing the metrics registry.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	registerer prometheus.Registerer
}

// WithRegisterer overrides the default Prometheus registerer.
func WithRegisterer(r prometheus.Registerer) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.registerer = r
	}
}

// NewMetrics constructs Metrics and registers Prometheus collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := metricsConfig{
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rank_fusion_policy_rejections_total",
		Help: "Requests rejected by the service guard, by reason.",
	}, []string{"reason"})

	budgetHit := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rank_fusion_budget_hit_total",
		Help: "Total number of requests that hit the configured budget.",
	})

	clients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rank_fusion_rate_limited_clients",
		Help: "Clients currently tracked by the rate limiter.",
	})

	return &Metrics{
		rejections: registerCollector(cfg.registerer, rejections),
		budgetHit:  registerCollector(cfg.registerer, budgetHit),
		clients:    registerCollector(cfg.registerer, clients),
	}
}

// IncRejected counts a request rejected for reason.
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// IncBudgetHit increments the budget hit counter.
func (m *Metrics) IncBudgetHit() {
	if m == nil {
		return
	}
	m.budgetHit.Inc()
}

// SetClients records how many clients the limiter tracks.
func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if registerer == nil {
		return collector
	}
	if err := registerer.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
			return collector
		}
		panic(err)
	}
	return collector
}
