package geospatial

import (
	"fmt"
	"sort"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// Median returns the middle value of values, or the mean of the two middle
// values for an even count. values is not modified.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: median of empty set", domain.ErrInvalidInput)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, nil
	}
	return sorted[mid], nil
}

// Counts holds occurrence counts together with first-seen order.
type Counts[T comparable] struct {
	counts map[T]int
	order  []T
}

// CountOccurrences tallies values, remembering the order in which each was first seen.
func CountOccurrences[T comparable](values []T) *Counts[T] {
	c := &Counts[T]{counts: make(map[T]int, len(values))}
	for _, v := range values {
		c.Add(v)
	}
	return c
}

// Add records one more occurrence of v.
func (c *Counts[T]) Add(v T) {
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// Get returns the count for v.
func (c *Counts[T]) Get(v T) int { return c.counts[v] }

// Len returns the number of distinct values.
func (c *Counts[T]) Len() int { return len(c.order) }

// Keys returns distinct values in first-seen order.
func (c *Counts[T]) Keys() []T {
	out := make([]T, len(c.order))
	copy(out, c.order)
	return out
}

// Map returns a copy of the counts.
func (c *Counts[T]) Map() map[T]int {
	out := make(map[T]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// MajorityVote returns the most frequent value. Ties go to the value seen first
// in values. Empty input yields def.
func MajorityVote[T comparable](values []T, def T) T {
	if len(values) == 0 {
		return def
	}

	counts := CountOccurrences(values)
	best, bestCount := def, 0
	for _, v := range counts.order {
		if n := counts.counts[v]; n > bestCount {
			best, bestCount = v, n
		}
	}
	return best
}
