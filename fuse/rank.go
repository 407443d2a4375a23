package fuse

import "sort"

// Rank returns a copy of items in descending weight order. Equal weights are
// ordered by tb: TieBreakInputOrder compares FirstSeen, TieBreakLexical
// compares keys. Both keys are unique per fused item, so the comparator is a
// strict total order and the result does not depend on sort stability.
func Rank(items []FusedItem, tb TieBreak) []FusedItem {
	ranked := cloneFused(items)
	lexical := tb == TieBreakLexical
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if lexical {
			if a.Key != b.Key {
				return a.Key < b.Key
			}
			return a.FirstSeen < b.FirstSeen
		}
		if a.FirstSeen != b.FirstSeen {
			return a.FirstSeen < b.FirstSeen
		}
		return a.Key < b.Key
	})
	return ranked
}

// TopK truncates ranked items to limit; a limit of 0 keeps everything.
func TopK(items []FusedItem, limit int) []FusedItem {
	if limit <= 0 || limit >= len(items) {
		return items
	}
	return items[:limit]
}
