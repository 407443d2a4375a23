package fuse

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Pipeline runs validate -> normalize -> fuse -> rank. It holds no mutable
// state and is safe for concurrent use.
type Pipeline struct {
	opts       Options
	normalizer Normalizer
	conflation Conflation
	// positional is set when weighted-sum multipliers come from
	// SourceWeightList and are bound to sources on each run.
	positional bool
}

// PipelineOption customizes a Pipeline beyond Options.
type PipelineOption func(*Pipeline)

// WithConflation replaces the built-in conflation selected by Options.
func WithConflation(c Conflation) PipelineOption {
	return func(p *Pipeline) {
		if c != nil {
			p.conflation = c
			p.positional = false
		}
	}
}

// WithNormalizer replaces the built-in normalizer selected by Options.
func WithNormalizer(n Normalizer) PipelineOption {
	return func(p *Pipeline) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// New validates opts and builds a Pipeline.
func New(opts Options, extra ...PipelineOption) (*Pipeline, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	normalizer, err := NewNormalizer(resolved.Normalization, resolved.Degenerate)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		opts:       resolved,
		normalizer: normalizer,
	}
	if resolved.Conflation == ConflateWeightedSum && len(resolved.SourceWeightList) > 0 {
		p.conflation = WeightedSum{}
		p.positional = true
	} else if p.conflation, err = NewConflation(resolved.Conflation, resolved.SourceWeights); err != nil {
		return nil, err
	}
	for _, opt := range extra {
		opt(p)
	}
	return p, nil
}

// Options returns the resolved options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run fuses lists into one ranking. Validation of every list happens before
// any cross-list work and the first failing list, in input order, aborts the
// run. ctx is checked between stages.
func (p *Pipeline) Run(ctx context.Context, lists []RankedList) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(lists) == 0 {
		return Result{}, invalidList("", "at least one list required")
	}

	conflation, err := p.conflationFor(lists)
	if err != nil {
		return Result{}, err
	}
	valid, stats, err := p.validate(lists, conflation)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	normalized, err := p.normalizeAll(valid)
	if err != nil {
		return Result{}, err
	}
	for _, n := range normalized {
		st := statsFor(stats, n.Source)
		st.Min, st.Max, st.Degenerate = n.Min, n.Max, n.Degenerate
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	fused, err := FuseParallel(normalized, conflation, p.opts.Workers)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ranked := TopK(Rank(fused, p.opts.TieBreak), p.opts.Limit)
	return Result{Items: ranked, Lists: stats}, nil
}

// conflationFor binds positional multipliers to the sources of this run.
func (p *Pipeline) conflationFor(lists []RankedList) (Conflation, error) {
	if !p.positional {
		return p.conflation, nil
	}
	if len(p.opts.SourceWeightList) != len(lists) {
		return nil, &ConfigurationError{
			Option: "source_weight_list",
			Value:  fmt.Sprint(len(p.opts.SourceWeightList)),
			Reason: fmt.Sprintf("need one multiplier per list, got %d lists", len(lists)),
		}
	}
	weights := make(map[string]float64, len(lists))
	for i, list := range lists {
		weights[list.Source] = p.opts.SourceWeightList[i]
	}
	return WeightedSum{Weights: weights}, nil
}

func (p *Pipeline) validate(lists []RankedList, conflation Conflation) ([]RankedList, []ListStats, error) {
	seen := make(map[string]struct{}, len(lists))
	valid := make([]RankedList, 0, len(lists))
	stats := make([]ListStats, 0, len(lists))
	sources := make([]string, 0, len(lists))

	for i, list := range lists {
		if list.Source == "" {
			return nil, nil, invalidList(fmt.Sprintf("#%d", i), "source identifier required")
		}
		if _, dup := seen[list.Source]; dup {
			return nil, nil, invalidList(list.Source, "source identifier repeated")
		}
		seen[list.Source] = struct{}{}

		if len(list.Items) == 0 && p.opts.SkipEmpty {
			stats = append(stats, ListStats{Source: list.Source, Skipped: true})
			continue
		}
		checked, err := validateList(list, p.opts.Duplicates)
		if err != nil {
			return nil, nil, err
		}
		valid = append(valid, checked)
		stats = append(stats, ListStats{Source: list.Source, Count: len(checked.Items)})
		sources = append(sources, list.Source)
	}

	if checker, ok := conflation.(interface{ CheckSources([]string) error }); ok {
		if err := checker.CheckSources(sources); err != nil {
			return nil, nil, err
		}
	}
	return valid, stats, nil
}

// normalizeAll rescales every list independently. Errors are reported for the
// lowest failing list index so the outcome does not depend on scheduling.
func (p *Pipeline) normalizeAll(lists []RankedList) ([]NormalizedList, error) {
	out := make([]NormalizedList, len(lists))
	errs := make([]error, len(lists))

	var g errgroup.Group
	if p.opts.Workers > 1 {
		g.SetLimit(p.opts.Workers)
	} else {
		g.SetLimit(1)
	}
	for i := range lists {
		i := i
		g.Go(func() error {
			out[i], errs[i] = p.normalizer.Normalize(lists[i])
			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return out, nil
	}

	// Wait reports whichever failure finished first.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func statsFor(stats []ListStats, source string) *ListStats {
	for i := range stats {
		if stats[i].Source == source {
			return &stats[i]
		}
	}
	return &ListStats{}
}
