//go:build nometrics

package policy

type Metrics struct{}

type MetricsOption func(*metricsConfig)

type metricsConfig struct{}

func NewMetrics(...MetricsOption) *Metrics {
	return nil
}

func WithRegisterer(_ any) MetricsOption {
	return func(*metricsConfig) {}
}

func (m *Metrics) IncRejected(string) {}

func (m *Metrics) IncBudgetHit() {}

func (m *Metrics) SetClients(int) {}
