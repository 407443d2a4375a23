package policy

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// BudgetArbiter bounds a request with a deadline and records whether the
// deadline, rather than the caller, ended it.
type BudgetArbiter struct {
	ctx     context.Context
	cancel  context.CancelFunc
	budget  time.Duration
	hit     atomic.Bool
	metrics *Metrics
}

// NewBudgetArbiter derives a deadline-bound context from parent. A budget of
// zero only adds cancellation.
func NewBudgetArbiter(parent context.Context, budgetMS int, metrics *Metrics) (*BudgetArbiter, error) {
	if budgetMS < 0 {
		return nil, ErrInvalidBudget
	}
	if parent == nil {
		parent = context.Background()
	}

	a := &BudgetArbiter{
		budget:  time.Duration(budgetMS) * time.Millisecond,
		metrics: metrics,
	}
	if budgetMS == 0 {
		a.ctx, a.cancel = context.WithCancel(parent)
		return a, nil
	}

	a.ctx, a.cancel = context.WithTimeout(parent, a.budget)
	return a, nil
}

// Context returns the budget-bound context.
func (a *BudgetArbiter) Context() context.Context {
	return a.ctx
}

// Budget returns the configured budget; zero means unbounded.
func (a *BudgetArbiter) Budget() time.Duration {
	return a.budget
}

// Observe inspects err after the guarded work finished. Deadline errors are
// counted once and reported as ErrBudgetExceeded; other errors pass through.
func (a *BudgetArbiter) Observe(err error) error {
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if a.hit.CompareAndSwap(false, true) {
		a.metrics.IncBudgetHit()
	}
	return errors.Join(ErrBudgetExceeded, err)
}

// Hit reports whether the budget was consumed.
func (a *BudgetArbiter) Hit() bool {
	if a == nil {
		return false
	}
	return a.hit.Load()
}

// Release frees the context resources.
func (a *BudgetArbiter) Release() {
	a.cancel()
}
