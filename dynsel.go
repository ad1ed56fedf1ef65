// Package dynsel provides dynamic ensemble selection for pools of previously
// trained classifiers: given a query, it decides which pool members
// participate and how many votes each gets, then aggregates the votes into a
// single predicted label.
//
// The package is a thin facade over the engine. A typical session fits an
// engine once over a held-out dynamic selection set and then classifies
// queries against it:
//
//	pool := dynsel.Pool{clfA, clfB, clfC}
//	engine, err := dynsel.NewEngine(dynsel.DefaultConfig(), pool)
//	if err != nil { ... }
//	if err := engine.Fit(ctx, dsel); err != nil { ... }
//	label, err := engine.Classify(ctx, query)
package dynsel

import (
	"io"

	"github.com/dynsel/dynsel/internal/application"
	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

// Re-exported domain types. External callers use these; the internal
// packages are not importable.
type (
	// Label is a categorical class label.
	Label = domain.Label
	// Sample is a single feature vector.
	Sample = domain.Sample
	// Dataset is the dynamic selection set: held-out samples with labels.
	Dataset = domain.Dataset
	// Region identifies a query's nearest selection-set neighbors.
	Region = domain.Region
	// Decision is a classification outcome with its supporting evidence.
	Decision = domain.Decision
	// BatchResult holds the labels of one concurrent batch run.
	BatchResult = domain.BatchResult

	// Classifier is the single capability required of every pool member.
	Classifier = ports.Classifier
	// Pool is an ordered, immutable sequence of trained classifiers.
	Pool = ports.Pool
	// Strategy is the contract implemented by selection strategies.
	Strategy = ports.Strategy
	// RegionProvider supplies the region of competence per query.
	RegionProvider = ports.RegionProvider
	// MaskProvider supplies the per-query pruning mask.
	MaskProvider = ports.MaskProvider
	// MetricsCollector receives classification metrics.
	MetricsCollector = ports.MetricsCollector

	// Config specifies a dynamic selection engine.
	Config = application.Config
	// StrategyConfig specifies the selection strategy within an engine.
	StrategyConfig = application.StrategyConfig
	// Engine is the query-time classification service.
	Engine = application.Engine
	// Option configures optional engine dependencies.
	Option = application.Option
)

// NormalizeLabel returns the Unicode case-folded form of a raw label string.
func NormalizeLabel(raw string) Label { return domain.NormalizeLabel(raw) }

// DefaultConfig returns an engine configuration with the conventional
// defaults of the dynamic selection literature: k of 7 under euclidean
// distance, pruning and hardness routing disabled.
func DefaultConfig() Config { return application.DefaultConfig() }

// LoadConfig reads a YAML engine configuration. Unknown fields are rejected.
func LoadConfig(r io.Reader) (Config, error) { return application.LoadConfig(r) }

// NewEngine creates an unfitted engine over the given pool.
func NewEngine(config Config, pool Pool, opts ...Option) (*Engine, error) {
	return application.NewEngine(config, pool, opts...)
}

// WithMetricsCollector attaches a metrics collector to the engine and the
// strategies it creates.
func WithMetricsCollector(collector MetricsCollector) Option {
	return application.WithMetricsCollector(collector)
}
