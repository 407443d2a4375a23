package fuse

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

type listContribution struct {
	list int
	Contribution
}

// group accumulates everything seen for one key. Partial groups from
// different shards merge by taking the earliest position and concatenating
// contributions.
type group struct {
	firstSeen int
	contribs  []listContribution
}

func (g *group) merge(other *group) {
	if other.firstSeen < g.firstSeen {
		g.firstSeen = other.firstSeen
	}
	g.contribs = append(g.contribs, other.contribs...)
}

// Fuse merges normalized lists by key using a single goroutine.
func Fuse(lists []NormalizedList, c Conflation) ([]FusedItem, error) {
	return FuseParallel(lists, c, 1)
}

// FuseParallel merges normalized lists by key, grouping shards of whole lists
// on up to workers goroutines. The result is identical to Fuse for any worker
// count: contributions are re-ordered by list before conflation, so weights
// are folded in the same order. Items are returned in first-seen order.
func FuseParallel(lists []NormalizedList, c Conflation, workers int) ([]FusedItem, error) {
	if c == nil {
		return nil, &ConfigurationError{Option: "conflation", Reason: "missing value"}
	}
	if len(lists) == 0 {
		return nil, nil
	}

	offsets := make([]int, len(lists))
	total := 0
	for i, l := range lists {
		offsets[i] = total
		total += len(l.Items)
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(lists) {
		workers = len(lists)
	}

	partials := make([]map[string]*group, workers)
	per := (len(lists) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * per
		end := start + per
		if end > len(lists) {
			end = len(lists)
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			partials[w] = groupShard(lists, offsets, start, end)
		}(w, start, end)
	}
	wg.Wait()

	merged := partials[0]
	for _, p := range partials[1:] {
		for key, g := range p {
			if existing, ok := merged[key]; ok {
				existing.merge(g)
				continue
			}
			merged[key] = g
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return merged[keys[i]].firstSeen < merged[keys[j]].firstSeen
	})

	fused := make([]FusedItem, 0, len(keys))
	for _, key := range keys {
		item, err := conflateGroup(key, merged[key], c)
		if err != nil {
			return nil, err
		}
		fused = append(fused, item)
	}
	return fused, nil
}

func groupShard(lists []NormalizedList, offsets []int, start, end int) map[string]*group {
	size := 0
	for i := start; i < end; i++ {
		size += len(lists[i].Items)
	}
	groups := make(map[string]*group, size)
	for i := start; i < end; i++ {
		src := lists[i].Source
		for idx, it := range lists[i].Items {
			pos := offsets[i] + idx
			lc := listContribution{
				list: i,
				Contribution: Contribution{
					Source: src,
					Rank:   idx + 1,
					Raw:    it.Raw,
					Weight: it.Weight,
				},
			}
			g, ok := groups[it.Key]
			if !ok {
				g = &group{firstSeen: pos}
				groups[it.Key] = g
			}
			g.contribs = append(g.contribs, lc)
		}
	}
	return groups
}

func conflateGroup(key string, g *group, c Conflation) (FusedItem, error) {
	sort.SliceStable(g.contribs, func(i, j int) bool {
		return g.contribs[i].list < g.contribs[j].list
	})

	item := FusedItem{
		Key:           key,
		FirstSeen:     g.firstSeen,
		Contributions: make([]Contribution, len(g.contribs)),
	}
	for i, lc := range g.contribs {
		item.Contributions[i] = lc.Contribution
		if i == 0 || g.contribs[i-1].list != lc.list {
			item.Sources = append(item.Sources, lc.Source)
		}
	}

	item.Weight = c.Conflate(item.Contributions)
	if math.IsNaN(item.Weight) || math.IsInf(item.Weight, 0) {
		return item, &InvalidInputError{
			Source: strings.Join(item.Sources, ","),
			Key:    key,
			Index:  -1,
			Weight: item.Weight,
			Reason: fmt.Sprintf("%s conflation produced a non-finite weight", c.Name()),
		}
	}
	return item, nil
}
