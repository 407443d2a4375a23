package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchforge/rank_fusion/fuse"
)

func listOf(source string, n int) fuse.RankedList {
	items := make([]fuse.Item, n)
	for i := range items {
		items[i] = fuse.Item{Key: source + string(rune('a'+i)), Weight: float64(i)}
	}
	return fuse.RankedList{Source: source, Items: items}
}

func TestLimitsCheck(t *testing.T) {
	limits := Limits{MaxLists: 2, MaxItemsPerList: 3, MaxTotalItems: 5}

	assert.NoError(t, limits.Check([]fuse.RankedList{listOf("a", 3), listOf("b", 2)}))

	err := limits.Check([]fuse.RankedList{listOf("a", 1), listOf("b", 1), listOf("c", 1)})
	require.ErrorIs(t, err, ErrInputTooLarge)
	var le *LimitError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "max_lists", le.Limit)

	err = limits.Check([]fuse.RankedList{listOf("a", 4)})
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "max_items_per_list", le.Limit)
	assert.Equal(t, "a", le.Source)

	err = limits.Check([]fuse.RankedList{listOf("a", 3), listOf("b", 3)})
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "max_total_items", le.Limit)
	assert.Equal(t, 6, le.Got)
}

func TestZeroLimitsAreUnbounded(t *testing.T) {
	assert.NoError(t, Limits{}.Check([]fuse.RankedList{listOf("a", 20), listOf("b", 20)}))
}
