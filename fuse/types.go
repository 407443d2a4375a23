// Package fuse merges independently scored result lists into one ranking.
//
// Each source list is rescaled on its own (min-max by default), entries that
// share a key are conflated across lists, and the merged entries are put in a
// deterministic total order.
package fuse

// Item is one scored entity from a single source list.
type Item struct {
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
}

// RankedList holds the results of a single source.
type RankedList struct {
	Source string `json:"source"`
	Items  []Item `json:"items"`
}

// Len returns the number of items in the list.
func (l RankedList) Len() int {
	return len(l.Items)
}

// NormalizedItem is an item after per-list rescaling. Raw keeps the weight the
// source reported.
type NormalizedItem struct {
	Key    string
	Raw    float64
	Weight float64
}

// NormalizedList is the output of a Normalizer for one source.
type NormalizedList struct {
	Source     string
	Items      []NormalizedItem
	Min        float64
	Max        float64
	Degenerate bool
}

// Contribution captures what a single source supplied for a fused key.
type Contribution struct {
	Source string  `json:"source"`
	Rank   int     `json:"rank"`
	Raw    float64 `json:"raw"`
	Weight float64 `json:"weight"`
}

// FusedItem is a key merged across every list that contained it.
type FusedItem struct {
	Key           string
	Weight        float64
	Sources       []string
	Contributions []Contribution

	// FirstSeen is the position of the key's first occurrence across the
	// concatenated input lists.
	FirstSeen int
}

// ListStats describes one input list as seen by the pipeline.
type ListStats struct {
	Source     string  `json:"source"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Degenerate bool    `json:"degenerate"`
	Skipped    bool    `json:"skipped,omitempty"`
}

// Result is the ranked output of a pipeline run.
type Result struct {
	Items []FusedItem
	Lists []ListStats
}

func cloneFused(items []FusedItem) []FusedItem {
	out := make([]FusedItem, len(items))
	for i, it := range items {
		it.Sources = append([]string(nil), it.Sources...)
		it.Contributions = append([]Contribution(nil), it.Contributions...)
		out[i] = it
	}
	return out
}
