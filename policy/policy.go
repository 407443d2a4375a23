package policy

import "errors"

var (
	// ErrRateLimited indicates the client exhausted its token bucket.
	ErrRateLimited = errors.New("rate limited")
	// ErrBudgetExceeded indicates the request budget has been exhausted.
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrInvalidBudget indicates the provided budget is invalid.
	ErrInvalidBudget = errors.New("invalid budget")
	// ErrInputTooLarge indicates the request exceeds the configured input limits.
	ErrInputTooLarge = errors.New("input too large")
)
