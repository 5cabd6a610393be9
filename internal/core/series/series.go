// Package series holds the in-memory time series shared by the block and
// price caches: a map from an integer key (block number or unix timestamp)
// to a value. Storage has no order; readers sort by key.
package series

import (
	"maps"
	"slices"
)

// Value is the set of value types a series can hold.
type Value interface {
	~int64 | ~float64
}

// Series maps integer keys to values.
type Series[V Value] map[int64]V

// New returns an empty series.
func New[V Value]() Series[V] {
	return make(Series[V])
}

// Merge unions entries into s. Keys present in entries overwrite existing
// values; keys only in s are kept. It returns how many keys were new.
func (s Series[V]) Merge(entries map[int64]V) int {
	added := 0
	for k, v := range entries {
		if _, ok := s[k]; !ok {
			added++
		}
		s[k] = v
	}
	return added
}

// Missing returns the subset of entries whose keys are not yet in s.
func (s Series[V]) Missing(entries map[int64]V) map[int64]V {
	out := make(map[int64]V)
	for k, v := range entries {
		if _, ok := s[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Keys returns the keys in ascending order.
func (s Series[V]) Keys() []int64 {
	return slices.Sorted(maps.Keys(s))
}

// Sorted returns parallel key/value slices ordered by key.
func (s Series[V]) Sorted() ([]int64, []V) {
	keys := s.Keys()
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = s[k]
	}
	return keys, values
}

// Bounds returns the smallest and largest key. ok is false for an empty series.
func (s Series[V]) Bounds() (lo, hi int64, ok bool) {
	for k := range s {
		if !ok {
			lo, hi, ok = k, k, true
			continue
		}
		lo = min(lo, k)
		hi = max(hi, k)
	}
	return lo, hi, ok
}
