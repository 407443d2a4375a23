package fuse

import "fmt"

// Conflation combines the contributions collected for one key into a single
// weight. Contributions arrive in input-list order and only include lists
// that actually contained the key; a missing list never counts as zero.
type Conflation interface {
	Name() string
	Conflate(contribs []Contribution) float64
}

// ConflationFunc adapts a plain function to the Conflation interface.
type ConflationFunc func(contribs []Contribution) float64

// Name implements Conflation.
func (f ConflationFunc) Name() string { return "custom" }

// Conflate implements Conflation.
func (f ConflationFunc) Conflate(contribs []Contribution) float64 { return f(contribs) }

// NewConflation returns the built-in conflation for kind. weights is only
// consulted for weighted-sum.
func NewConflation(kind ConflationKind, weights map[string]float64) (Conflation, error) {
	kind, err := ParseConflation(string(kind))
	if err != nil {
		return nil, err
	}
	switch kind {
	case ConflateSum:
		return Sum{}, nil
	case ConflateMean:
		return Mean{}, nil
	case ConflateWeightedSum:
		if len(weights) == 0 {
			return nil, &ConfigurationError{Option: "source_weights", Reason: "required for weighted-sum"}
		}
		copied := make(map[string]float64, len(weights))
		for src, w := range weights {
			copied[src] = w
		}
		return WeightedSum{Weights: copied}, nil
	default:
		return Max{}, nil
	}
}

// Max keeps the strongest evidence.
type Max struct{}

// Name implements Conflation.
func (Max) Name() string { return string(ConflateMax) }

// Conflate implements Conflation.
func (Max) Conflate(contribs []Contribution) float64 {
	if len(contribs) == 0 {
		return 0
	}
	best := contribs[0].Weight
	for _, c := range contribs[1:] {
		if c.Weight > best {
			best = c.Weight
		}
	}
	return best
}

// Sum adds every contribution.
type Sum struct{}

// Name implements Conflation.
func (Sum) Name() string { return string(ConflateSum) }

// Conflate implements Conflation.
func (Sum) Conflate(contribs []Contribution) float64 {
	var total float64
	for _, c := range contribs {
		total += c.Weight
	}
	return total
}

// Mean averages over the lists that contain the key, not over all lists.
type Mean struct{}

// Name implements Conflation.
func (Mean) Name() string { return string(ConflateMean) }

// Conflate implements Conflation.
func (Mean) Conflate(contribs []Contribution) float64 {
	if len(contribs) == 0 {
		return 0
	}
	return Sum{}.Conflate(contribs) / float64(len(contribs))
}

// WeightedSum multiplies each contribution by its source's multiplier.
type WeightedSum struct {
	Weights map[string]float64
}

// Name implements Conflation.
func (WeightedSum) Name() string { return string(ConflateWeightedSum) }

// Conflate implements Conflation. Sources without a multiplier contribute
// nothing; CheckSources rejects such inputs before fusion.
func (w WeightedSum) Conflate(contribs []Contribution) float64 {
	var total float64
	for _, c := range contribs {
		total += w.Weights[c.Source] * c.Weight
	}
	return total
}

// CheckSources verifies every source has a multiplier.
func (w WeightedSum) CheckSources(sources []string) error {
	for _, src := range sources {
		if _, ok := w.Weights[src]; !ok {
			return &ConfigurationError{
				Option: "source_weights",
				Value:  src,
				Reason: fmt.Sprintf("no multiplier for source %q", src),
			}
		}
	}
	return nil
}
