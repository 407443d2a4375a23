package fuse

import (
	"fmt"
	"math"
)

// validateList checks keys and weights of one list and resolves repeated keys
// according to policy. The returned list never aliases the input slice.
func validateList(list RankedList, policy DuplicatePolicy) (RankedList, error) {
	if list.Source == "" {
		return list, invalidList(list.Source, "source identifier required")
	}
	if len(list.Items) == 0 {
		return list, invalidList(list.Source, "list is empty")
	}

	out := RankedList{
		Source: list.Source,
		Items:  make([]Item, 0, len(list.Items)),
	}
	seen := make(map[string]int, len(list.Items))

	for idx, it := range list.Items {
		if it.Key == "" {
			return list, invalidItem(list.Source, idx, it, "empty key")
		}
		if math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) {
			return list, invalidItem(list.Source, idx, it, fmt.Sprintf("weight %g is not finite", it.Weight))
		}

		pos, dup := seen[it.Key]
		if !dup {
			seen[it.Key] = len(out.Items)
			out.Items = append(out.Items, it)
			continue
		}

		switch policy {
		case DuplicateKeepFirst:
		case DuplicateKeepMax:
			if it.Weight > out.Items[pos].Weight {
				out.Items[pos].Weight = it.Weight
			}
		default:
			return list, invalidItem(list.Source, idx, it,
				fmt.Sprintf("duplicate key (first weight %g)", out.Items[pos].Weight))
		}
	}
	return out, nil
}
