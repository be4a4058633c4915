package matcher

import "sort"

// Index groups items by canonical key for equi-join lookups.
// Items whose key is empty are never indexed.
type Index[T any] struct {
	buckets map[string][]T
	skipped int
	total   int
}

// NewIndex builds an index over items using key to read each item's key
func NewIndex[T any](items []T, key func(T) string) *Index[T] {
	index := &Index[T]{
		buckets: make(map[string][]T),
		total:   len(items),
	}
	for _, item := range items {
		k := CanonicalKey(key(item))
		if k == "" {
			index.skipped++
			continue
		}
		index.buckets[k] = append(index.buckets[k], item)
	}
	return index
}

// Lookup returns the items indexed under key, in insertion order
func (ix *Index[T]) Lookup(key string) []T {
	return ix.buckets[CanonicalKey(key)]
}

// Contains reports whether any item has key
func (ix *Index[T]) Contains(key string) bool {
	return len(ix.Lookup(key)) > 0
}

// Keys returns the distinct keys in sorted order
func (ix *Index[T]) Keys() []string {
	keys := make([]string, 0, len(ix.buckets))
	for k := range ix.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of distinct keys
func (ix *Index[T]) Len() int {
	return len(ix.buckets)
}

// Skipped returns how many items had an empty key
func (ix *Index[T]) Skipped() int {
	return ix.skipped
}

// Total returns how many items were offered to the index
func (ix *Index[T]) Total() int {
	return ix.total
}
