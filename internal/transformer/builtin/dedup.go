// Package builtin contains reusable record transformers.
//
// DeDup collapses duplicate records by a natural key and chooses one winner
// per key according to a policy:
//
//   - "keep-first": the earliest occurrence in input order (default)
//   - "prefer"    : the occurrence Better ranks highest; ties keep the
//     earlier record
//
// Input order is the run's stable ingestion order, so every policy is
// deterministic. Winners are emitted in ascending order of their input
// position. Records whose key function reports no key are dropped.
package builtin

import "sort"

// Policy names a winner-selection rule.
type Policy string

const (
	KeepFirst Policy = "keep-first"
	Prefer    Policy = "prefer"
)

// DeDup is an in-memory, policy-driven de-duplication over a slice of T.
type DeDup[T any] struct {
	// Key returns the natural key of a record; ok=false excludes the record.
	Key func(T) (key string, ok bool)

	// Policy selects the winner among duplicates.
	Policy Policy

	// Better reports whether cand should replace cur. Required for Prefer.
	Better func(cand, cur T) bool
}

// Apply returns one winning record per key.
func (d DeDup[T]) Apply(in []T) []T {
	if len(in) == 0 || d.Key == nil {
		return nil
	}
	policy := d.Policy
	if policy == "" {
		policy = KeepFirst
	}

	winners := make(map[string]int, len(in))
	for i, r := range in {
		key, ok := d.Key(r)
		if !ok {
			continue
		}
		prev, exists := winners[key]
		switch {
		case !exists:
			winners[key] = i
		case policy == Prefer && d.Better != nil && d.Better(r, in[prev]):
			winners[key] = i
		}
	}

	indexes := make([]int, 0, len(winners))
	for _, idx := range winners {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]T, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, in[idx])
	}
	return out
}
