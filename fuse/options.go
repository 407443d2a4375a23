package fuse

import (
	"fmt"
	"math"
	"strings"
)

// NormalizationKind selects how each list is rescaled.
type NormalizationKind string

const (
	NormalizeMinMax NormalizationKind = "min-max"
	NormalizeNone   NormalizationKind = "none"
	NormalizeZScore NormalizationKind = "z-score"
)

// ConflationKind selects how weights for a shared key are combined.
type ConflationKind string

const (
	ConflateMax         ConflationKind = "max"
	ConflateSum         ConflationKind = "sum"
	ConflateMean        ConflationKind = "mean"
	ConflateWeightedSum ConflationKind = "weighted-sum"
)

// DegeneratePolicy decides what happens to a list whose weights are all equal.
type DegeneratePolicy string

const (
	DegenerateError        DegeneratePolicy = "error"
	DegenerateConstantOne  DegeneratePolicy = "constant-one"
	DegenerateConstantZero DegeneratePolicy = "constant-zero"
)

// TieBreak orders fused items that share a weight.
type TieBreak string

const (
	// TieBreakInputOrder keeps the key that appeared first across the
	// concatenated input lists ahead.
	TieBreakInputOrder TieBreak = "stable-input-order"
	// TieBreakLexical orders equal weights by key, independent of input order.
	TieBreakLexical TieBreak = "lexical-key"
)

// DuplicatePolicy decides what happens to a key repeated inside one list.
type DuplicatePolicy string

const (
	DuplicateError     DuplicatePolicy = "error"
	DuplicateKeepFirst DuplicatePolicy = "keep-first"
	DuplicateKeepMax   DuplicatePolicy = "keep-max"
)

// Options configures a Pipeline. Zero values select the defaults: min-max,
// max, constant-one, stable-input-order and error on duplicates.
type Options struct {
	Normalization NormalizationKind
	Conflation    ConflationKind
	// SourceWeights holds the per-source multipliers for weighted-sum.
	SourceWeights map[string]float64
	// SourceWeightList holds positional weighted-sum multipliers, one per
	// input list in order. It is the alternative to SourceWeights.
	SourceWeightList []float64
	Degenerate    DegeneratePolicy
	TieBreak      TieBreak
	Duplicates    DuplicatePolicy
	// SkipEmpty drops empty lists instead of rejecting the request.
	SkipEmpty bool
	// Limit truncates the ranked output; 0 keeps everything.
	Limit int
	// Workers bounds the goroutines used for normalization and grouping.
	// Values below 2 run single-threaded.
	Workers int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Normalization: NormalizeMinMax,
		Conflation:    ConflateMax,
		Degenerate:    DegenerateConstantOne,
		TieBreak:      TieBreakInputOrder,
		Duplicates:    DuplicateError,
	}
}

// withDefaults fills empty fields and validates the enumerations.
func (o Options) withDefaults() (Options, error) {
	def := DefaultOptions()
	if o.Normalization == "" {
		o.Normalization = def.Normalization
	}
	if o.Conflation == "" {
		o.Conflation = def.Conflation
	}
	if o.Degenerate == "" {
		o.Degenerate = def.Degenerate
	}
	if o.TieBreak == "" {
		o.TieBreak = def.TieBreak
	}
	if o.Duplicates == "" {
		o.Duplicates = def.Duplicates
	}

	var err error
	if o.Normalization, err = ParseNormalization(string(o.Normalization)); err != nil {
		return o, err
	}
	if o.Conflation, err = ParseConflation(string(o.Conflation)); err != nil {
		return o, err
	}
	if o.Degenerate, err = ParseDegeneratePolicy(string(o.Degenerate)); err != nil {
		return o, err
	}
	if o.TieBreak, err = ParseTieBreak(string(o.TieBreak)); err != nil {
		return o, err
	}
	if o.Duplicates, err = ParseDuplicatePolicy(string(o.Duplicates)); err != nil {
		return o, err
	}
	if o.Limit < 0 {
		return o, &ConfigurationError{Option: "limit", Value: fmt.Sprint(o.Limit), Reason: "must not be negative"}
	}
	if o.Conflation == ConflateWeightedSum {
		switch {
		case len(o.SourceWeights) == 0 && len(o.SourceWeightList) == 0:
			return o, &ConfigurationError{Option: "source_weights", Reason: "required for weighted-sum"}
		case len(o.SourceWeights) > 0 && len(o.SourceWeightList) > 0:
			return o, &ConfigurationError{Option: "source_weight_list", Reason: "set either source_weights or source_weight_list"}
		}
		for src, w := range o.SourceWeights {
			if !validMultiplier(w) {
				return o, &ConfigurationError{Option: "source_weights", Value: src, Reason: fmt.Sprintf("multiplier %g must be finite and non-negative", w)}
			}
		}
		for i, w := range o.SourceWeightList {
			if !validMultiplier(w) {
				return o, &ConfigurationError{Option: "source_weight_list", Value: fmt.Sprint(i), Reason: fmt.Sprintf("multiplier %g must be finite and non-negative", w)}
			}
		}
	}
	return o, nil
}

func validMultiplier(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0) && w >= 0
}

// ParseNormalization resolves a normalization name.
func ParseNormalization(s string) (NormalizationKind, error) {
	switch canonical(s) {
	case "min-max", "minmax":
		return NormalizeMinMax, nil
	case "none":
		return NormalizeNone, nil
	case "z-score", "zscore":
		return NormalizeZScore, nil
	}
	return "", unknownOption("normalization", s)
}

// ParseConflation resolves a conflation name.
func ParseConflation(s string) (ConflationKind, error) {
	switch canonical(s) {
	case "max":
		return ConflateMax, nil
	case "sum":
		return ConflateSum, nil
	case "mean":
		return ConflateMean, nil
	case "weighted-sum", "weightedsum":
		return ConflateWeightedSum, nil
	}
	return "", unknownOption("conflation", s)
}

// ParseDegeneratePolicy resolves a degenerate range policy name.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch canonical(s) {
	case "error":
		return DegenerateError, nil
	case "constant-one":
		return DegenerateConstantOne, nil
	case "constant-zero":
		return DegenerateConstantZero, nil
	}
	return "", unknownOption("degenerate_policy", s)
}

// ParseTieBreak resolves a tie-break rule name.
func ParseTieBreak(s string) (TieBreak, error) {
	switch canonical(s) {
	case "stable-input-order", "input-order":
		return TieBreakInputOrder, nil
	case "lexical-key", "lexical":
		return TieBreakLexical, nil
	}
	return "", unknownOption("tie_break", s)
}

// ParseDuplicatePolicy resolves a duplicate key policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch canonical(s) {
	case "error":
		return DuplicateError, nil
	case "keep-first":
		return DuplicateKeepFirst, nil
	case "keep-max":
		return DuplicateKeepMax, nil
	}
	return "", unknownOption("duplicates", s)
}

func canonical(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

func unknownOption(option, value string) error {
	if value == "" {
		return &ConfigurationError{Option: option, Reason: "missing value"}
	}
	return &ConfigurationError{Option: option, Value: value, Reason: "unknown value"}
}
