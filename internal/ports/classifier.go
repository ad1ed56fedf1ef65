// Package ports defines the core interfaces that form the contract between
// the selection core and the collaborators supplied by the surrounding
// framework: the classifier pool, the region-of-competence provider, and the
// pruning mask provider.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"fmt"

	"github.com/dynsel/dynsel/internal/domain"
)

// Classifier is the single capability required of every pool member: predict
// a label for one query. Any classifier variant implementing this operation
// participates in dynamic selection; no richer interface is required.
// Implementations must be safe for concurrent use, since independent queries
// may be classified in parallel.
type Classifier interface {
	// Predict returns the classifier's label for the query.
	// Shape validation is the implementation's concern; a prediction failure
	// aborts classification of the query with no retry and no skipping.
	Predict(ctx context.Context, query domain.Sample) (domain.Label, error)
}

// Pool is an ordered, fixed-size sequence of independently trained
// classifiers. Order is significant: votes are cast in pool order, and the
// aggregation tie-break resolves to the earliest-voting classifier's label.
// A Pool is immutable after training.
type Pool []Classifier

// Len returns the number of classifiers in the pool.
func (p Pool) Len() int { return len(p) }

// Validate checks that the pool is non-empty and has no nil members.
func (p Pool) Validate() error {
	if len(p) == 0 {
		return domain.ErrEmptyPool
	}
	for i, clf := range p {
		if clf == nil {
			return fmt.Errorf("classifier at index %d is nil", i)
		}
	}
	return nil
}
