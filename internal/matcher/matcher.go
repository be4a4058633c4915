// Package matcher provides the key-based equi-joins used to cross
// settlement, order, provision and ledger data.
//
// Keys are compared through CanonicalKey so that ids typed as numbers in one
// spreadsheet and as text in another still meet. Empty keys never match.
//
// Example usage:
//
//	pairs, stats := matcher.InnerJoin(settlements, orders,
//		func(s models.SettlementRecord) string { return s.DocumentID },
//		func(o models.OrderRecord) string { return o.OrderNumber })
//	log.WithField("matched", stats.Matched).Info("Joined")
package matcher

import "fmt"

// Pair is one output row of an inner join
type Pair[L, R any] struct {
	Left  L
	Right R
}

// LeftPair is one output row of a left join; Right is the zero value when
// Matched is false.
type LeftPair[L, R any] struct {
	Left    L
	Right   R
	Matched bool
}

// JoinStats describes how many rows took part in a join
type JoinStats struct {
	LeftRows       int `json:"left_rows"`
	RightRows      int `json:"right_rows"`
	OutputRows     int `json:"output_rows"`
	LeftUnmatched  int `json:"left_unmatched"`
	RightUnmatched int `json:"right_unmatched"`
	EmptyLeftKeys  int `json:"empty_left_keys"`
	EmptyRightKeys int `json:"empty_right_keys"`
}

// String returns a human-readable summary
func (s JoinStats) String() string {
	return fmt.Sprintf("%d x %d rows -> %d (left unmatched %d, right unmatched %d)",
		s.LeftRows, s.RightRows, s.OutputRows, s.LeftUnmatched, s.RightUnmatched)
}

// InnerJoin pairs every left row with every right row sharing its key.
// Output follows left order, then right order within a key.
func InnerJoin[L, R any](left []L, right []R, leftKey func(L) string, rightKey func(R) string) ([]Pair[L, R], JoinStats) {
	index := NewIndex(right, rightKey)
	stats := JoinStats{
		LeftRows:       len(left),
		RightRows:      index.Total(),
		EmptyRightKeys: index.Skipped(),
	}

	used := make(map[string]bool)
	var out []Pair[L, R]
	for _, l := range left {
		k := CanonicalKey(leftKey(l))
		if k == "" {
			stats.EmptyLeftKeys++
			stats.LeftUnmatched++
			continue
		}
		matches := index.Lookup(k)
		if len(matches) == 0 {
			stats.LeftUnmatched++
			continue
		}
		used[k] = true
		for _, r := range matches {
			out = append(out, Pair[L, R]{Left: l, Right: r})
		}
	}

	for _, k := range index.Keys() {
		if !used[k] {
			stats.RightUnmatched += len(index.Lookup(k))
		}
	}
	stats.RightUnmatched += index.Skipped()
	stats.OutputRows = len(out)
	return out, stats
}

// LeftJoin keeps every left row, paired with each right row sharing its key
// or emitted once unmatched.
func LeftJoin[L, R any](left []L, right []R, leftKey func(L) string, rightKey func(R) string) ([]LeftPair[L, R], JoinStats) {
	index := NewIndex(right, rightKey)
	stats := JoinStats{
		LeftRows:       len(left),
		RightRows:      index.Total(),
		EmptyRightKeys: index.Skipped(),
	}

	var out []LeftPair[L, R]
	for _, l := range left {
		k := CanonicalKey(leftKey(l))
		if k == "" {
			stats.EmptyLeftKeys++
		}
		matches := index.Lookup(k)
		if k == "" || len(matches) == 0 {
			stats.LeftUnmatched++
			out = append(out, LeftPair[L, R]{Left: l})
			continue
		}
		for _, r := range matches {
			out = append(out, LeftPair[L, R]{Left: l, Right: r, Matched: true})
		}
	}
	stats.OutputRows = len(out)
	return out, stats
}
