package fuse

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput matches every InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDegenerateRange matches every DegenerateRangeError.
	ErrDegenerateRange = errors.New("degenerate range")
	// ErrConfiguration matches every ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")
)

// InvalidInputError reports a malformed list, key or weight.
type InvalidInputError struct {
	Source string
	Key    string
	Index  int
	Weight float64
	Reason string
}

func (e *InvalidInputError) Error() string {
	msg := fmt.Sprintf("invalid input: source %q", e.Source)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" item %d", e.Index)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" key %q", e.Key)
	}
	return msg + ": " + e.Reason
}

// Is lets errors.Is match ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// DegenerateRangeError is returned when every weight in a list is identical and
// the degenerate policy is DegenerateError.
type DegenerateRangeError struct {
	Source string
	Value  float64
	Count  int
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("degenerate range: source %q has %d item(s) all weighted %g", e.Source, e.Count, e.Value)
}

// Is lets errors.Is match ErrDegenerateRange.
func (e *DegenerateRangeError) Is(target error) bool {
	return target == ErrDegenerateRange
}

// ConfigurationError reports an unknown or incomplete option.
type ConfigurationError struct {
	Option string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration: %s: %s", e.Option, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s=%q: %s", e.Option, e.Value, e.Reason)
}

// Is lets errors.Is match ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func invalidItem(source string, index int, it Item, reason string) error {
	return &InvalidInputError{
		Source: source,
		Key:    it.Key,
		Index:  index,
		Weight: it.Weight,
		Reason: reason,
	}
}

func invalidList(source, reason string) error {
	return &InvalidInputError{Source: source, Index: -1, Reason: reason}
}
