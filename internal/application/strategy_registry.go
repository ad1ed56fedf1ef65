// Package application wires the classifier pool, the training-time
// artifacts, and a selection strategy into a query-time classification
// engine. It owns configuration loading, the fit pass that builds the
// correctness table, and batch classification.
package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/dynsel/dynsel/infrastructure/strategies"
	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.StrategyRegistry = (*DefaultStrategyRegistry)(nil)

// Collaborators bundles the dependencies the registry injects into every
// strategy it creates. They are established at fit time and read-only
// afterwards.
type Collaborators struct {
	// Pool is the trained classifier pool, in training order.
	Pool ports.Pool
	// Region supplies the region of competence per query.
	Region ports.RegionProvider
	// Mask supplies the per-query pruning mask; nil disables pruning.
	Mask ports.MaskProvider
	// Table is the fitted correctness table over the selection set.
	Table *domain.CorrectnessTable
	// Metrics receives classification metrics. May be nil.
	Metrics ports.MetricsCollector
}

// DefaultStrategyRegistry implements the StrategyRegistry interface,
// providing a factory for creating selection strategies based on type and
// configuration. It supports dynamic registration of strategy factories and
// injects the shared collaborators into strategies that need them.
type DefaultStrategyRegistry struct {
	// factories maps strategy type strings to their factory functions.
	factories map[string]ports.StrategyFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
	// collaborators are injected into every created strategy.
	collaborators Collaborators
}

// NewDefaultStrategyRegistry creates a new strategy registry with the
// standard strategy types pre-registered and the given collaborators
// injected into strategies that require them.
func NewDefaultStrategyRegistry(collaborators Collaborators) *DefaultStrategyRegistry {
	registry := &DefaultStrategyRegistry{
		factories:     make(map[string]ports.StrategyFactory),
		collaborators: collaborators,
	}
	registry.registerBuiltinFactories()
	return registry
}

// registerBuiltinFactories registers the standard strategy types provided by
// the framework.
func (r *DefaultStrategyRegistry) registerBuiltinFactories() {
	collaborators := r.collaborators

	r.factories["knora_u"] = func(id string, config map[string]any) (ports.Strategy, error) {
		// Inject collaborators into config.
		config["pool"] = collaborators.Pool
		config["region_provider"] = collaborators.Region
		if collaborators.Mask != nil {
			config["mask_provider"] = collaborators.Mask
		}
		config["correctness_table"] = collaborators.Table
		if collaborators.Metrics != nil {
			config["metrics_collector"] = collaborators.Metrics
		}
		strategy, err := strategies.CreateKNORAUStrategy(id, config)
		if err != nil {
			return nil, err
		}
		return strategy, nil
	}
}

// CreateStrategy creates a new strategy instance based on the provided type,
// identifier, and configuration. It looks up the appropriate factory
// function and delegates creation, injecting shared collaborators.
// An unknown type is reported together with the closest registered type
// name, so configuration typos fail with a usable message.
func (r *DefaultStrategyRegistry) CreateStrategy(
	strategyType string,
	id string,
	config map[string]any,
) (ports.Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[strategyType]
	r.mu.RUnlock()

	if !exists {
		if suggestion := r.closestType(strategyType); suggestion != "" {
			return nil, fmt.Errorf("unsupported strategy type: %s (did you mean %q?)",
				strategyType, suggestion)
		}
		return nil, fmt.Errorf("unsupported strategy type: %s", strategyType)
	}

	if id == "" {
		return nil, fmt.Errorf("strategy ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	strategy, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy %s of type %s: %w", id, strategyType, err)
	}
	return strategy, nil
}

// RegisterFactory registers a new factory function for a custom strategy
// type. Re-registering an existing type is an error; built-in types cannot
// be silently replaced.
func (r *DefaultStrategyRegistry) RegisterFactory(
	strategyType string,
	factory ports.StrategyFactory,
) error {
	if strategyType == "" {
		return fmt.Errorf("strategy type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[strategyType]; exists {
		return fmt.Errorf("strategy type already registered: %s", strategyType)
	}
	r.factories[strategyType] = factory
	return nil
}

// ListStrategyTypes returns all registered strategy types, sorted.
// This is useful for validation, documentation, and introspection purposes.
func (r *DefaultStrategyRegistry) ListStrategyTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for strategyType := range r.factories {
		types = append(types, strategyType)
	}
	sort.Strings(types)
	return types
}

// closestType returns the registered type nearest to the given name by edit
// distance, or empty when nothing is plausibly close.
func (r *DefaultStrategyRegistry) closestType(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	bestDistance := len(name)/2 + 1 // beyond this a suggestion is noise
	for candidate := range r.factories {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}
	return best
}
