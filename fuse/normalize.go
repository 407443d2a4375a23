package fuse

import "math"

// Normalizer rescales the weights of one list. Implementations never modify
// the input and always return one output item per input item, in input order.
type Normalizer interface {
	Name() NormalizationKind
	Normalize(list RankedList) (NormalizedList, error)
}

// NewNormalizer returns the normalizer for kind. The degenerate policy applies
// to min-max and z-score.
func NewNormalizer(kind NormalizationKind, policy DegeneratePolicy) (Normalizer, error) {
	var err error
	if policy, err = ParseDegeneratePolicy(string(policy)); err != nil {
		return nil, err
	}
	if kind, err = ParseNormalization(string(kind)); err != nil {
		return nil, err
	}
	switch kind {
	case NormalizeNone:
		return Identity{}, nil
	case NormalizeZScore:
		return ZScore{Policy: policy}, nil
	default:
		return MinMax{Policy: policy}, nil
	}
}

// MinMax maps each weight to (w - min) / (max - min) using the list's own
// bounds. The maximum maps to exactly 1, the minimum to exactly 0 and every
// other weight lands strictly between them.
type MinMax struct {
	Policy DegeneratePolicy
}

// Name implements Normalizer.
func (MinMax) Name() NormalizationKind { return NormalizeMinMax }

// Normalize implements Normalizer.
func (n MinMax) Normalize(list RankedList) (NormalizedList, error) {
	out, lo, hi := newNormalized(list)
	if len(list.Items) == 0 {
		return out, nil
	}

	if lo == hi {
		return degenerate(out, n.Policy, lo)
	}

	// Halving keeps the span finite when the bounds sit at opposite ends of
	// the float64 range.
	scale := 1.0
	if math.IsInf(hi-lo, 0) {
		scale = 0.5
	}
	span := hi*scale - lo*scale
	for i, it := range list.Items {
		switch it.Weight {
		case hi:
			out.Items[i].Weight = 1
		case lo:
			out.Items[i].Weight = 0
		default:
			out.Items[i].Weight = interior((it.Weight*scale - lo*scale) / span)
		}
	}
	return out, nil
}

// interior keeps rounding from pushing a non-extreme weight onto a bound.
func interior(v float64) float64 {
	if v <= 0 {
		return math.SmallestNonzeroFloat64
	}
	if v >= 1 {
		return math.Nextafter(1, 0)
	}
	return v
}

// Identity passes weights through unchanged.
type Identity struct{}

// Name implements Normalizer.
func (Identity) Name() NormalizationKind { return NormalizeNone }

// Normalize implements Normalizer.
func (Identity) Normalize(list RankedList) (NormalizedList, error) {
	out, lo, hi := newNormalized(list)
	out.Degenerate = len(list.Items) > 0 && lo == hi
	for i, it := range list.Items {
		out.Items[i].Weight = it.Weight
	}
	return out, nil
}

// ZScore maps each weight to its distance from the list mean in population
// standard deviations.
type ZScore struct {
	Policy DegeneratePolicy
}

// Name implements Normalizer.
func (ZScore) Name() NormalizationKind { return NormalizeZScore }

// Normalize implements Normalizer.
func (n ZScore) Normalize(list RankedList) (NormalizedList, error) {
	out, lo, hi := newNormalized(list)
	if len(list.Items) == 0 {
		return out, nil
	}
	if lo == hi {
		return degenerate(out, n.Policy, lo)
	}

	// z-scores are scale invariant, so working on w/scale keeps every
	// square in [0, 4] whatever the magnitude of the raw weights.
	scale := math.Max(math.Abs(lo), math.Abs(hi))
	count := float64(len(list.Items))
	var mean float64
	for _, it := range list.Items {
		mean += it.Weight / scale / count
	}
	var variance float64
	for _, it := range list.Items {
		d := it.Weight/scale - mean
		variance += d * d / count
	}
	std := math.Sqrt(variance)
	if std == 0 {
		return degenerate(out, n.Policy, lo)
	}
	for i, it := range list.Items {
		out.Items[i].Weight = (it.Weight/scale - mean) / std
	}
	return out, nil
}

// newNormalized copies keys and raw weights and computes the bounds in one pass.
func newNormalized(list RankedList) (NormalizedList, float64, float64) {
	out := NormalizedList{
		Source: list.Source,
		Items:  make([]NormalizedItem, len(list.Items)),
	}
	if len(list.Items) == 0 {
		return out, 0, 0
	}
	lo, hi := list.Items[0].Weight, list.Items[0].Weight
	for i, it := range list.Items {
		out.Items[i] = NormalizedItem{Key: it.Key, Raw: it.Weight}
		if it.Weight < lo {
			lo = it.Weight
		}
		if it.Weight > hi {
			hi = it.Weight
		}
	}
	out.Min, out.Max = lo, hi
	return out, lo, hi
}

func degenerate(out NormalizedList, policy DegeneratePolicy, value float64) (NormalizedList, error) {
	out.Degenerate = true
	var fill float64
	switch policy {
	case DegenerateConstantOne:
		fill = 1
	case DegenerateConstantZero:
		fill = 0
	default:
		return out, &DegenerateRangeError{Source: out.Source, Value: value, Count: len(out.Items)}
	}
	for i := range out.Items {
		out.Items[i].Weight = fill
	}
	return out, nil
}
