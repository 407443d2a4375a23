package policy

import (
	"fmt"

	"github.com/searchforge/rank_fusion/fuse"
)

// Limits bounds the size of a single fusion request. Zero fields are unbounded.
type Limits struct {
	MaxLists        int
	MaxItemsPerList int
	MaxTotalItems   int
}

// LimitError reports which bound a request crossed.
type LimitError struct {
	Limit  string
	Source string
	Got    int
	Max    int
}

func (e *LimitError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: source %q has %d, max %d", e.Limit, e.Source, e.Got, e.Max)
	}
	return fmt.Sprintf("%s: got %d, max %d", e.Limit, e.Got, e.Max)
}

// Unwrap lets errors.Is match ErrInputTooLarge.
func (e *LimitError) Unwrap() error {
	return ErrInputTooLarge
}

// Check returns a *LimitError for the first bound lists exceed.
func (l Limits) Check(lists []fuse.RankedList) error {
	if l.MaxLists > 0 && len(lists) > l.MaxLists {
		return &LimitError{Limit: "max_lists", Got: len(lists), Max: l.MaxLists}
	}
	total := 0
	for _, list := range lists {
		n := list.Len()
		if l.MaxItemsPerList > 0 && n > l.MaxItemsPerList {
			return &LimitError{Limit: "max_items_per_list", Source: list.Source, Got: n, Max: l.MaxItemsPerList}
		}
		total += n
	}
	if l.MaxTotalItems > 0 && total > l.MaxTotalItems {
		return &LimitError{Limit: "max_total_items", Got: total, Max: l.MaxTotalItems}
	}
	return nil
}
