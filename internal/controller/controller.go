package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/searchforge/rank_fusion/fuse"
	"github.com/searchforge/rank_fusion/internal/contract"
	"github.com/searchforge/rank_fusion/obs"
	"github.com/searchforge/rank_fusion/policy"
	"github.com/searchforge/rank_fusion/sources"
)

const otherSource = "other"

// Config groups controller dependencies.
type Config struct {
	Defaults      fuse.Options
	CanonicalKeys bool
	Guard         *policy.Guard
	Logger        *zap.Logger
	// MetricSources lists the source names allowed as metric labels, in
	// addition to the keys of Defaults.SourceWeights. Other names are
	// recorded as "other".
	MetricSources []string
}

// Controller coordinates the guard, the fusion pipeline and response mapping.
type Controller struct {
	defaults  fuse.Options
	base      *fuse.Pipeline
	canonical bool
	guard     *policy.Guard
	log       *zap.Logger
	labels    map[string]struct{}
}

// Error is a failed request with the return code and HTTP status it maps to.
type Error struct {
	Code   string
	Status int
	Source string
	Key    string
	Option string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a controller. The default options are validated up front so
// a misconfigured service fails at startup.
func New(cfg Config) (*Controller, error) {
	if cfg.Guard == nil {
		return nil, fmt.Errorf("guard required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	base, err := fuse.New(cfg.Defaults)
	if err != nil {
		return nil, fmt.Errorf("default fusion options: %w", err)
	}
	labels := make(map[string]struct{}, len(cfg.MetricSources)+len(cfg.Defaults.SourceWeights))
	for _, src := range cfg.MetricSources {
		labels[src] = struct{}{}
	}
	for src := range cfg.Defaults.SourceWeights {
		labels[src] = struct{}{}
	}
	return &Controller{
		defaults:  base.Options(),
		base:      base,
		canonical: cfg.CanonicalKeys,
		guard:     cfg.Guard,
		log:       cfg.Logger,
		labels:    labels,
	}, nil
}

// sourceLabel bounds the source label cardinality to configured names.
func (c *Controller) sourceLabel(source string) string {
	if _, ok := c.labels[source]; ok {
		return source
	}
	return otherSource
}

// Defaults returns the resolved default options.
func (c *Controller) Defaults() fuse.Options {
	return c.defaults
}

// Fuse runs one fusion request and returns the response, its return code and
// an *Error on failure.
func (c *Controller) Fuse(ctx context.Context, req contract.Request) (contract.Response, string, error) {
	start := time.Now()
	var resp contract.Response
	resp.TraceID = req.TraceID

	items, err := c.fuse(ctx, req, &resp)
	resp.Timings.TotalMS = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		ce := classify(err)
		resp.RetCode = ce.Code
		obs.ObserveFuseRequest(ce.Code, time.Since(start), req.TraceID)
		c.log.Warn("fusion failed",
			zap.String("trace_id", req.TraceID),
			zap.String("ret_code", ce.Code),
			zap.Int("lists", len(req.Lists)),
			zap.Error(err),
		)
		return resp, ce.Code, ce
	}

	resp.Items = items
	resp.RetCode = contract.CodeOK
	obs.ObserveFuseRequest(resp.RetCode, time.Since(start), req.TraceID)
	obs.RecordFusedItems(len(items))
	c.log.Info("fusion completed",
		zap.String("trace_id", req.TraceID),
		zap.Int("lists", len(req.Lists)),
		zap.Int("items", len(items)),
		zap.Float64("total_ms", resp.Timings.TotalMS),
	)
	return resp, resp.RetCode, nil
}

func (c *Controller) fuse(ctx context.Context, req contract.Request, resp *contract.Response) ([]contract.Item, error) {
	if err := c.guard.Admit(req.ClientID); err != nil {
		return nil, err
	}

	lists := req.RankedLists()
	if err := c.guard.Check(lists); err != nil {
		return nil, err
	}
	if c.canonical {
		lists = sources.CanonicalizeKeys(lists)
	}

	pipeline, err := c.pipelineFor(req.Options)
	if err != nil {
		return nil, err
	}

	arbiter, err := c.guard.Budget(ctx, req.BudgetMS)
	if err != nil {
		return nil, err
	}
	defer arbiter.Release()

	total := 0
	for _, l := range lists {
		obs.RecordListSize(c.sourceLabel(l.Source), l.Len())
		total += l.Len()
	}

	spanCtx, span := obs.StartSpan(arbiter.Context(), "fuse.pipeline",
		attribute.Int("fusion.lists", len(lists)),
		attribute.Int("fusion.items", total),
		attribute.String("fusion.conflation", string(pipeline.Options().Conflation)),
	)
	result, err := pipeline.Run(spanCtx, lists)
	err = arbiter.Observe(err)
	obs.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	policyName := string(pipeline.Options().Degenerate)
	for _, st := range result.Lists {
		if st.Degenerate {
			obs.IncDegenerate(c.sourceLabel(st.Source), policyName)
			c.log.Warn("degenerate list",
				zap.String("trace_id", req.TraceID),
				zap.String("source", st.Source),
				zap.Float64("weight", st.Min),
				zap.Int("count", st.Count),
				zap.String("policy", policyName),
			)
		}
	}

	resp.Lists = result.Lists
	return toContract(result.Items), nil
}

func (c *Controller) pipelineFor(o contract.Options) (*fuse.Pipeline, error) {
	if isZeroOptions(o) {
		return c.base, nil
	}
	return fuse.New(mergeOptions(c.defaults, o))
}

func isZeroOptions(o contract.Options) bool {
	return o.Normalization == "" && o.Conflation == "" && o.SourceWeights == nil && o.SourceWeightList == nil &&
		o.Degenerate == "" && o.TieBreak == "" && o.Duplicates == "" &&
		o.SkipEmpty == nil && o.Limit == nil
}

func mergeOptions(base fuse.Options, o contract.Options) fuse.Options {
	if o.Normalization != "" {
		base.Normalization = fuse.NormalizationKind(o.Normalization)
	}
	if o.Conflation != "" {
		base.Conflation = fuse.ConflationKind(o.Conflation)
	}
	if o.SourceWeights != nil {
		base.SourceWeights, base.SourceWeightList = o.SourceWeights, nil
	}
	if o.SourceWeightList != nil {
		base.SourceWeights, base.SourceWeightList = nil, o.SourceWeightList
	}
	if o.Degenerate != "" {
		base.Degenerate = fuse.DegeneratePolicy(o.Degenerate)
	}
	if o.TieBreak != "" {
		base.TieBreak = fuse.TieBreak(o.TieBreak)
	}
	if o.Duplicates != "" {
		base.Duplicates = fuse.DuplicatePolicy(o.Duplicates)
	}
	if o.SkipEmpty != nil {
		base.SkipEmpty = *o.SkipEmpty
	}
	if o.Limit != nil {
		base.Limit = *o.Limit
	}
	return base
}

func classify(err error) *Error {
	ce := &Error{Code: contract.CodeInternal, Status: http.StatusInternalServerError, Err: err}

	var (
		inv    *fuse.InvalidInputError
		dre    *fuse.DegenerateRangeError
		cfgErr *fuse.ConfigurationError
		limit  *policy.LimitError
	)
	switch {
	case errors.Is(err, policy.ErrRateLimited):
		ce.Code, ce.Status = contract.CodeRateLimited, http.StatusTooManyRequests
	case errors.As(err, &limit):
		ce.Code, ce.Status = contract.CodeInputTooLarge, http.StatusRequestEntityTooLarge
		ce.Source = limit.Source
		ce.Option = limit.Limit
	case errors.Is(err, policy.ErrInvalidBudget):
		ce.Code, ce.Status = contract.CodeBadRequest, http.StatusBadRequest
		ce.Option = "budget_ms"
	case errors.Is(err, policy.ErrBudgetExceeded), errors.Is(err, context.DeadlineExceeded):
		ce.Code, ce.Status = contract.CodeBudgetExceeded, http.StatusGatewayTimeout
	case errors.As(err, &cfgErr):
		ce.Code, ce.Status = contract.CodeBadConfig, http.StatusBadRequest
		ce.Option = cfgErr.Option
		if cfgErr.Option == "source_weights" {
			ce.Source = cfgErr.Value
		}
	case errors.As(err, &dre):
		ce.Code, ce.Status = contract.CodeDegenerateRange, http.StatusUnprocessableEntity
		ce.Source = dre.Source
	case errors.As(err, &inv):
		ce.Code, ce.Status = contract.CodeBadRequest, http.StatusBadRequest
		ce.Source, ce.Key = inv.Source, inv.Key
	}
	return ce
}

func toContract(items []fuse.FusedItem) []contract.Item {
	out := make([]contract.Item, 0, len(items))
	for _, it := range items {
		out = append(out, contract.Item{
			Key:           it.Key,
			Weight:        it.Weight,
			Sources:       it.Sources,
			Contributions: it.Contributions,
		})
	}
	return out
}
