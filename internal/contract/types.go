package contract

import (
	"context"

	"github.com/searchforge/rank_fusion/fuse"
)

const (
	TraceIDHeader  = "X-Trace-Id"
	ClientIDHeader = "X-Client-Id"
)

// Return codes reported in Response.RetCode and error bodies.
const (
	CodeOK              = "OK"
	CodeBadRequest      = "BAD_REQUEST"
	CodeBadConfig       = "BAD_CONFIG"
	CodeDegenerateRange = "DEGENERATE_RANGE"
	CodeInputTooLarge   = "INPUT_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeBudgetExceeded  = "BUDGET_EXCEEDED"
	CodeInternal        = "INTERNAL"
)

// List is one source's scored results.
type List struct {
	Source string      `json:"source"`
	Items  []fuse.Item `json:"items"`
}

// Options overrides the server's fusion defaults field by field.
type Options struct {
	Normalization string             `json:"normalization,omitempty"`
	Conflation    string             `json:"conflation,omitempty"`
	SourceWeights map[string]float64 `json:"source_weights,omitempty"`
	// SourceWeightList gives weighted-sum multipliers by list position.
	SourceWeightList []float64 `json:"source_weight_list,omitempty"`
	Degenerate    string             `json:"degenerate_policy,omitempty"`
	TieBreak      string             `json:"tie_break,omitempty"`
	Duplicates    string             `json:"duplicates,omitempty"`
	SkipEmpty     *bool              `json:"skip_empty,omitempty"`
	Limit         *int               `json:"limit,omitempty"`
}

// Request is the body of POST /v1/fuse.
type Request struct {
	Lists    []List  `json:"lists"`
	Options  Options `json:"options"`
	BudgetMS int     `json:"budget_ms,omitempty"`
	TraceID  string  `json:"-"`
	ClientID string  `json:"-"`
}

// RankedLists converts the wire lists into pipeline input.
func (r Request) RankedLists() []fuse.RankedList {
	out := make([]fuse.RankedList, len(r.Lists))
	for i, l := range r.Lists {
		out[i] = fuse.RankedList{Source: l.Source, Items: l.Items}
	}
	return out
}

// Item represents a fused result.
type Item struct {
	Key           string              `json:"key"`
	Weight        float64             `json:"weight"`
	Sources       []string            `json:"sources"`
	Contributions []fuse.Contribution `json:"contributions,omitempty"`
}

// Response encapsulates the public response schema for /v1/fuse.
type Response struct {
	Items   []Item           `json:"items"`
	Lists   []fuse.ListStats `json:"lists"`
	Timings struct {
		TotalMS float64 `json:"total_ms"`
	} `json:"timings"`
	RetCode string `json:"ret_code"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorBody is returned with every non-2xx status.
type ErrorBody struct {
	RetCode string `json:"ret_code"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
	Key     string `json:"key,omitempty"`
	Option  string `json:"option,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type contextKey string

const traceIDKey contextKey = "rank_fusion_trace_id"

// WithTraceID stores the trace identifier in context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext extracts the trace identifier.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	traceID, ok := ctx.Value(traceIDKey).(string)
	return traceID, ok
}
