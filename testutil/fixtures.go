// Package testutil provides shared fixtures for service-level tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/searchforge/rank_fusion/fuse"
	"github.com/searchforge/rank_fusion/internal/contract"
)

// ScenarioLists is the two-source example: a lexical list on a 100..800
// scale and a vector list on a 0.1..0.3 scale sharing key "a.c".
func ScenarioLists() []contract.List {
	return []contract.List{
		{Source: "lexical", Items: []fuse.Item{{Key: "a.a", Weight: 100}, {Key: "a.b", Weight: 200}, {Key: "a.c", Weight: 800}}},
		{Source: "vector", Items: []fuse.Item{{Key: "b.a", Weight: 0.1}, {Key: "b.b", Weight: 0.12}, {Key: "a.c", Weight: 0.3}}},
	}
}

// ScenarioOrder is the ranked key order for ScenarioLists under the default
// options.
var ScenarioOrder = []string{"a.c", "a.b", "b.b", "a.a", "b.a"}

// ScenarioRequest wraps ScenarioLists in a request.
func ScenarioRequest() contract.Request {
	return contract.Request{
		Lists:    ScenarioLists(),
		TraceID:  "trace-scenario",
		ClientID: "tester",
	}
}

// RandomLists builds n lists of size distinct keys drawn from a shared pool,
// so keys overlap across lists. The same seed yields the same lists.
func RandomLists(seed int64, n, size int) []contract.List {
	rng := rand.New(rand.NewSource(seed))
	pool := size * 2
	lists := make([]contract.List, n)
	for i := range lists {
		perm := rng.Perm(pool)[:size]
		items := make([]fuse.Item, size)
		for j, k := range perm {
			items[j] = fuse.Item{Key: fmt.Sprintf("doc-%03d", k), Weight: rng.Float64() * float64(i+1) * 10}
		}
		lists[i] = contract.List{Source: fmt.Sprintf("source-%d", i), Items: items}
	}
	return lists
}

// Keys returns the keys of items in order.
func Keys(items []contract.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}
