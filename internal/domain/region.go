package domain

import "fmt"

// Region identifies a query's region of competence: the indices of its
// nearest selection-set neighbors, ordered by ascending distance, together
// with those distances. Distances are carried for strategies that discount
// votes by proximity; the union strategy ignores them.
// A Region is produced fresh per query and discarded afterwards.
type Region struct {
	// Indices are row indices into the selection set (and the correctness
	// table), nearest neighbor first.
	Indices []int

	// Distances are the query-to-neighbor distances, aligned with Indices.
	// May be nil when the provider does not report them.
	Distances []float64
}

// Size returns the number of neighbors in the region.
func (r Region) Size() int { return len(r.Indices) }

// Validate checks that the region is non-empty and that every neighbor index
// is a valid row of a selection set with the given number of samples.
func (r Region) Validate(samples int) error {
	if len(r.Indices) == 0 {
		return ErrEmptyRegion
	}
	if r.Distances != nil && len(r.Distances) != len(r.Indices) {
		return fmt.Errorf("%w: indices=%d, distances=%d",
			ErrRegionMisaligned, len(r.Indices), len(r.Distances))
	}
	for _, idx := range r.Indices {
		if idx < 0 || idx >= samples {
			return fmt.Errorf("%w: index %d, selection set size %d",
				ErrRegionOutOfRange, idx, samples)
		}
	}
	return nil
}

// Truncate returns a prefix of the region with at most n neighbors.
// Because regions are ordered nearest-first, the prefix is itself a valid,
// smaller region of competence.
func (r Region) Truncate(n int) Region {
	if n >= len(r.Indices) {
		return r
	}
	out := Region{Indices: r.Indices[:n]}
	if r.Distances != nil {
		out.Distances = r.Distances[:n]
	}
	return out
}
