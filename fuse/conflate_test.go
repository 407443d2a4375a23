package fuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contribs(pairs ...any) []Contribution {
	out := make([]Contribution, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Contribution{Source: pairs[i].(string), Weight: pairs[i+1].(float64)})
	}
	return out
}

func TestBuiltinConflations(t *testing.T) {
	c := contribs("bm25", 0.2, "dense", 0.8, "sparse", 0.5)

	assert.Equal(t, 0.8, Max{}.Conflate(c))
	assert.InDelta(t, 1.5, Sum{}.Conflate(c), 1e-12)
	assert.InDelta(t, 0.5, Mean{}.Conflate(c), 1e-12)

	ws := WeightedSum{Weights: map[string]float64{"bm25": 2, "dense": 0.5, "sparse": 0}}
	assert.InDelta(t, 0.8, ws.Conflate(c), 1e-12)
}

func TestMeanUsesOnlyContainingLists(t *testing.T) {
	assert.Equal(t, 0.9, Mean{}.Conflate(contribs("dense", 0.9)))
}

func TestMaxOfNegativeWeights(t *testing.T) {
	assert.Equal(t, -0.5, Max{}.Conflate(contribs("a", -1.0, "b", -0.5)))
}

func TestNewConflation(t *testing.T) {
	c, err := NewConflation("SUM", nil)
	require.NoError(t, err)
	assert.Equal(t, "sum", c.Name())

	_, err = NewConflation(ConflateWeightedSum, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewConflation("median", nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "conflation", cfgErr.Option)
	assert.Equal(t, "median", cfgErr.Value)
}

func TestWeightedSumCheckSources(t *testing.T) {
	ws := WeightedSum{Weights: map[string]float64{"bm25": 1}}
	assert.NoError(t, ws.CheckSources([]string{"bm25"}))
	assert.ErrorIs(t, ws.CheckSources([]string{"bm25", "dense"}), ErrConfiguration)
}

func TestConflationFunc(t *testing.T) {
	minimum := ConflationFunc(func(cs []Contribution) float64 {
		best := cs[0].Weight
		for _, c := range cs[1:] {
			if c.Weight < best {
				best = c.Weight
			}
		}
		return best
	})
	assert.Equal(t, "custom", minimum.Name())
	assert.Equal(t, 0.2, minimum.Conflate(contribs("a", 0.2, "b", 0.7)))
}
