package fuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(items []FusedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func TestRankScenario(t *testing.T) {
	fused, err := Fuse(normalizeAllMinMax(t, scenarioLists()), Max{})
	require.NoError(t, err)

	ranked := Rank(fused, TieBreakInputOrder)
	assert.Equal(t, []string{"a.c", "a.b", "b.b", "a.a", "b.a"}, keysOf(ranked))

	ranked = Rank(fused, TieBreakLexical)
	assert.Equal(t, []string{"a.c", "a.b", "b.b", "a.a", "b.a"}, keysOf(ranked))
}

func TestRankTieBreaks(t *testing.T) {
	items := []FusedItem{
		{Key: "zeta", Weight: 0.5, FirstSeen: 0},
		{Key: "alpha", Weight: 0.5, FirstSeen: 4},
		{Key: "mid", Weight: 0.9, FirstSeen: 2},
		{Key: "beta", Weight: 0.5, FirstSeen: 1},
	}

	assert.Equal(t, []string{"mid", "zeta", "beta", "alpha"}, keysOf(Rank(items, TieBreakInputOrder)))
	assert.Equal(t, []string{"mid", "alpha", "beta", "zeta"}, keysOf(Rank(items, TieBreakLexical)))

	assert.Equal(t, "zeta", items[0].Key, "input must not be reordered")
}

func TestRankIsRepeatable(t *testing.T) {
	items := make([]FusedItem, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, FusedItem{Key: string(rune('A' + i)), Weight: float64(i % 3), FirstSeen: 49 - i})
	}
	first := Rank(items, TieBreakInputOrder)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Rank(items, TieBreakInputOrder))
	}
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Weight, first[i].Weight)
	}
}

func TestTopK(t *testing.T) {
	items := []FusedItem{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	assert.Len(t, TopK(items, 0), 3)
	assert.Len(t, TopK(items, 2), 2)
	assert.Len(t, TopK(items, 10), 3)
}
