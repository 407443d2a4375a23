package policy

import (
	"context"
	"time"

	"github.com/searchforge/rank_fusion/fuse"
)

// GuardConfig groups the service-boundary policy configuration.
type GuardConfig struct {
	Limits          Limits
	Rate            RateLimitConfig
	DefaultBudgetMS int
	MaxBudgetMS     int
}

// Guard wires together rate limiting, input limits and the budget arbiter.
type Guard struct {
	cfg     GuardConfig
	limiter *ClientLimiter
	metrics *Metrics
	now     func() time.Time
}

// NewGuard creates a guard with the provided configuration.
func NewGuard(cfg GuardConfig, metrics *Metrics) (*Guard, error) {
	if cfg.DefaultBudgetMS < 0 || cfg.MaxBudgetMS < 0 {
		return nil, ErrInvalidBudget
	}
	if cfg.MaxBudgetMS > 0 && cfg.DefaultBudgetMS > cfg.MaxBudgetMS {
		return nil, ErrInvalidBudget
	}
	return &Guard{
		cfg:     cfg,
		limiter: NewClientLimiter(cfg.Rate),
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Admit consumes a rate limit token for client.
func (g *Guard) Admit(client string) error {
	allowed := g.limiter.Allow(client, g.now())
	g.metrics.SetClients(g.limiter.Clients())
	if !allowed {
		g.metrics.IncRejected("rate_limited")
		return ErrRateLimited
	}
	return nil
}

// Check enforces the input limits.
func (g *Guard) Check(lists []fuse.RankedList) error {
	if err := g.cfg.Limits.Check(lists); err != nil {
		g.metrics.IncRejected("input_too_large")
		return err
	}
	return nil
}

// Budget starts a budget arbiter for a request. A requested budget of zero
// uses the default; budgets above the maximum are clamped.
func (g *Guard) Budget(ctx context.Context, requestedMS int) (*BudgetArbiter, error) {
	if requestedMS < 0 {
		g.metrics.IncRejected("invalid_budget")
		return nil, ErrInvalidBudget
	}
	budget := requestedMS
	if budget == 0 {
		budget = g.cfg.DefaultBudgetMS
	}
	if g.cfg.MaxBudgetMS > 0 && (budget == 0 || budget > g.cfg.MaxBudgetMS) {
		budget = g.cfg.MaxBudgetMS
	}
	return NewBudgetArbiter(ctx, budget, g.metrics)
}

// Metrics returns the metrics collector.
func (g *Guard) Metrics() *Metrics {
	return g.metrics
}
