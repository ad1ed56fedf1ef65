package ports

import (
	"context"

	"github.com/dynsel/dynsel/internal/domain"
)

// Strategy is the shared contract every dynamic selection strategy
// implements. It is an explicit capability set rather than a base type:
// strategies share nothing but this interface, and the collaborators they
// depend on (region lookup, pruning mask, correctness table) are injected at
// construction time.
//
// Strategies hold no per-query mutable state. Each classification call is a
// pure function of the query and the read-only training-time artifacts, so
// independent queries may be classified concurrently.
type Strategy interface {
	// Name returns a unique identifier for this strategy instance.
	// The name is used for logging, metrics, and configuration.
	Name() string

	// EstimateCompetence turns a query into a per-classifier integer
	// competence score, in pool order. Every entry lies in [0, k] where k is
	// the region-of-competence size. Pruned classifiers score zero.
	EstimateCompetence(ctx context.Context, query domain.Sample) ([]int, error)

	// Select turns competence scores into an ordered vote sequence, applying
	// the strategy's policy for the degenerate all-zero case. Votes appear in
	// pool order; this ordering drives the aggregation tie-break.
	Select(ctx context.Context, query domain.Sample) ([]domain.Label, error)

	// ClassifyInstance produces the final predicted label for the query by
	// aggregating the vote sequence. This is the sole operation external
	// callers need; EstimateCompetence and Select are exposed for
	// diagnostics.
	ClassifyInstance(ctx context.Context, query domain.Sample) (domain.Label, error)

	// Validate checks if the strategy is properly configured and ready for
	// classification. Return nil if validation passes, or an error describing
	// what is invalid.
	Validate() error
}

// RegionProvider supplies the region of competence for a query: the indices
// of its k nearest selection-set neighbors, possibly reduced under an
// instance-hardness policy, together with their distances.
// Providers must reject queries whose dimensionality does not match the
// selection set; the selection core does not validate shape itself.
type RegionProvider interface {
	RegionOfCompetence(ctx context.Context, query domain.Sample) (domain.Region, error)
}

// MaskProvider supplies the per-query inclusion mask produced by dynamic
// frienemy pruning. A true entry means the classifier survives pruning and
// is eligible to earn competence. The mask length must equal the pool size.
type MaskProvider interface {
	InclusionMask(ctx context.Context, query domain.Sample) ([]bool, error)
}

// StrategyFactory creates a strategy instance from an identifier and a
// configuration map. Collaborator dependencies are injected into the map by
// the registry before the factory runs.
type StrategyFactory func(id string, config map[string]any) (Strategy, error)

// StrategyRegistry provides dynamic creation of selection strategies by type
// name, with support for registering custom strategy factories.
type StrategyRegistry interface {
	// CreateStrategy creates a strategy of the given type with the given
	// instance identifier and configuration.
	CreateStrategy(strategyType, id string, config map[string]any) (Strategy, error)

	// RegisterFactory registers a factory for a custom strategy type.
	// Registering an already-registered type is an error.
	RegisterFactory(strategyType string, factory StrategyFactory) error

	// ListStrategyTypes returns the registered strategy type names, sorted.
	ListStrategyTypes() []string
}
