package strategies

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

var _ ports.Strategy = (*KNORAU)(nil)

// KNORAU implements the k-Nearest Oracles Union selection strategy.
//
// Competence of a base classifier is the number of samples in the query's
// region of competence that it classified correctly during the offline fit
// pass. Every classifier with nonzero competence is selected and casts that
// many votes for its own prediction of the query; the plurality of the vote
// sequence wins.
//
// When no classifier shows competence in the region, the strategy falls back
// to a uniform weight of one for the entire pool, pruned classifiers
// included.
//
// The strategy is stateless across calls and safe for concurrent use;
// the pool, correctness table, and providers it reads are fixed at
// construction time.
type KNORAU struct {
	// name is the unique identifier for this strategy instance.
	name string
	// config contains the validated configuration parameters.
	config KNORAUConfig
	// pool is the ordered classifier pool; order drives the vote tie-break.
	pool ports.Pool
	// region supplies the query's nearest selection-set neighbors.
	region ports.RegionProvider
	// mask supplies the frienemy-pruning inclusion mask; nil disables pruning.
	mask ports.MaskProvider
	// table is the fit-time correctness record over the selection set.
	table *domain.CorrectnessTable
	// metrics is the optional collector for classification metrics.
	metrics ports.MetricsCollector
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// KNORAUConfig defines the configuration parameters for the KNORAU strategy.
// All fields are validated during strategy creation and parameter
// unmarshaling.
type KNORAUConfig struct {
	// Weighted selects distance-discounted voting instead of pure vote
	// replication. Reserved: only false is accepted.
	// TODO: implement the distance-weighted voting variant.
	Weighted bool `yaml:"weighted" json:"weighted"`
}

// Dependencies bundles the collaborators a KNORAU strategy operates over.
// Pool, Region, and Table are required; Mask and Metrics are optional.
type Dependencies struct {
	// Pool is the trained classifier pool, in training order.
	Pool ports.Pool
	// Region supplies the region of competence per query.
	Region ports.RegionProvider
	// Mask supplies the per-query inclusion mask. A nil Mask means pruning
	// is disabled and every classifier is eligible.
	Mask ports.MaskProvider
	// Table is the processed selection-set correctness table. Its column
	// count must equal the pool size.
	Table *domain.CorrectnessTable
	// Metrics receives classification counters and latencies. May be nil.
	Metrics ports.MetricsCollector
}

// NewKNORAU creates a new KNORAU strategy with the specified configuration
// and collaborators. Returns an error if configuration validation fails or a
// required collaborator is missing or inconsistent with the pool.
func NewKNORAU(name string, config KNORAUConfig, deps Dependencies) (*KNORAU, error) {
	if name == "" {
		return nil, ErrEmptyStrategyName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if config.Weighted {
		return nil, ErrWeightedVoting
	}

	if err := deps.Pool.Validate(); err != nil {
		return nil, fmt.Errorf("pool validation failed: %w", err)
	}
	if deps.Region == nil {
		return nil, ErrNilRegionProvider
	}
	if deps.Table == nil {
		return nil, ErrNilCorrectnessTable
	}
	if deps.Table.Cols() != deps.Pool.Len() {
		return nil, fmt.Errorf("%w: correctness table has %d columns, pool has %d classifiers",
			domain.ErrPoolMismatch, deps.Table.Cols(), deps.Pool.Len())
	}

	return &KNORAU{
		name:    name,
		config:  config,
		pool:    deps.Pool,
		region:  deps.Region,
		mask:    deps.Mask,
		table:   deps.Table,
		metrics: deps.Metrics,
		tracer:  otel.Tracer("knora-u-strategy"),
	}, nil
}

// Name returns the unique identifier for this strategy instance.
func (ku *KNORAU) Name() string { return ku.name }

// EstimateCompetence computes the competence of each base classifier as the
// number of samples in the query's region of competence that it correctly
// classified. Classifiers pruned by the inclusion mask never accrue
// competence, even where their predictions were correct. The result is one
// integer per pool classifier, each in [0, k].
func (ku *KNORAU) EstimateCompetence(ctx context.Context, query domain.Sample) ([]int, error) {
	ctx, span := ku.tracer.Start(ctx, "knora_u.estimate_competence")
	defer span.End()

	region, err := ku.region.RegionOfCompetence(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("region of competence: %w", err)
	}
	if err := region.Validate(ku.table.Rows()); err != nil {
		return nil, fmt.Errorf("region of competence: %w", err)
	}

	mask, err := ku.inclusionMask(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("inclusion mask: %w", err)
	}

	competences := make([]int, ku.pool.Len())
	for clfIndex := range ku.pool {
		if !mask[clfIndex] {
			continue
		}
		for _, neighbor := range region.Indices {
			if ku.table.Correct(neighbor, clfIndex) {
				competences[clfIndex]++
			}
		}
	}

	span.SetAttributes(
		attribute.Int("region.size", region.Size()),
		attribute.Int("pool.size", ku.pool.Len()),
	)
	return competences, nil
}

// Select builds the vote sequence for the query. Each classifier is queried
// once for its prediction of the query itself, in pool order, and that label
// is appended as many times as the classifier's weight.
//
// Weights are the competence scores, unless every score is zero: then the
// computed vector is discarded and a uniform weight of one is substituted
// for the entire pool. Note the asymmetry with pruning: a classifier the
// mask excluded from competence still votes under the fallback. If all are
// zero, use all of them.
func (ku *KNORAU) Select(ctx context.Context, query domain.Sample) ([]domain.Label, error) {
	ctx, span := ku.tracer.Start(ctx, "knora_u.select")
	defer span.End()

	weights, err := ku.EstimateCompetence(ctx, query)
	if err != nil {
		return nil, err
	}

	fallback := allZero(weights)
	if fallback {
		for i := range weights {
			weights[i] = 1
		}
		ku.recordCounter("fallback_total", 1)
	}
	span.SetAttributes(attribute.Bool("fallback", fallback))

	total := 0
	for _, w := range weights {
		total += w
	}

	votes := make([]domain.Label, 0, total)
	for clfIndex, clf := range ku.pool {
		// Every pool member is queried exactly once, weight zero included.
		// The predict order is part of the contract: it fixes the vote order
		// and therefore the aggregation tie-break.
		label, err := clf.Predict(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("classifier %d predict: %w", clfIndex, err)
		}
		for n := 0; n < weights[clfIndex]; n++ {
			votes = append(votes, label)
		}
	}
	return votes, nil
}

// ClassifyInstance predicts the label of the query sample by aggregating the
// votes of the selected base classifiers. The predicted label is the class
// that obtained the highest number of votes, ties broken by earliest first
// occurrence in the vote sequence.
func (ku *KNORAU) ClassifyInstance(ctx context.Context, query domain.Sample) (domain.Label, error) {
	ctx, span := ku.tracer.Start(ctx, "knora_u.classify_instance")
	defer span.End()

	start := time.Now()
	votes, err := ku.Select(ctx, query)
	if err != nil {
		ku.recordCounter("classifications_total", 1, "status", "error")
		return "", err
	}

	label, err := PluralityVote(votes)
	if err != nil {
		ku.recordCounter("classifications_total", 1, "status", "error")
		return "", err
	}

	ku.recordCounter("classifications_total", 1, "status", "success")
	if ku.metrics != nil {
		ku.metrics.RecordLatency("classify_instance", time.Since(start),
			map[string]string{"strategy": ku.name})
		ku.metrics.RecordHistogram("votes_cast", float64(len(votes)),
			map[string]string{"strategy": ku.name})
	}
	span.SetAttributes(
		attribute.Int("votes", len(votes)),
		attribute.String("label", string(label)),
	)
	return label, nil
}

// Validate checks if the strategy is properly configured and ready for
// classification.
func (ku *KNORAU) Validate() error {
	if ku.name == "" {
		return ErrEmptyStrategyName
	}
	if err := validate.Struct(ku.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := ku.pool.Validate(); err != nil {
		return fmt.Errorf("pool validation failed: %w", err)
	}
	if ku.region == nil {
		return ErrNilRegionProvider
	}
	if ku.table == nil {
		return ErrNilCorrectnessTable
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters into the
// strategy's configuration struct with strict validation.
// Returns an error if YAML parsing fails or the decoded configuration is
// invalid.
func (ku *KNORAU) UnmarshalParameters(params yaml.Node) error {
	var config KNORAUConfig
	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	if config.Weighted {
		return ErrWeightedVoting
	}
	ku.config = config
	return nil
}

// inclusionMask returns the per-query pruning mask, or an all-true mask when
// pruning is disabled. The mask length must equal the pool size.
func (ku *KNORAU) inclusionMask(ctx context.Context, query domain.Sample) ([]bool, error) {
	if ku.mask == nil {
		mask := make([]bool, ku.pool.Len())
		for i := range mask {
			mask[i] = true
		}
		return mask, nil
	}

	mask, err := ku.mask.InclusionMask(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(mask) != ku.pool.Len() {
		return nil, fmt.Errorf("%w: mask has %d entries, pool has %d classifiers",
			domain.ErrPoolMismatch, len(mask), ku.pool.Len())
	}
	return mask, nil
}

func (ku *KNORAU) recordCounter(metric string, value float64, kv ...string) {
	if ku.metrics == nil {
		return
	}
	labels := map[string]string{"strategy": ku.name}
	for i := 0; i+1 < len(kv); i += 2 {
		labels[kv[i]] = kv[i+1]
	}
	ku.metrics.RecordCounter(metric, value, labels)
}

// DefaultKNORAUConfig returns a KNORAUConfig with sensible defaults.
func DefaultKNORAUConfig() KNORAUConfig {
	return KNORAUConfig{Weighted: false}
}

// CreateKNORAUStrategy is a factory function that creates a KNORAU strategy
// from a configuration map, following the StrategyFactory pattern.
// Collaborators are read from well-known keys injected by the registry.
// This function is used by the StrategyRegistry for dynamic strategy creation.
func CreateKNORAUStrategy(id string, config map[string]any) (*KNORAU, error) {
	cfg := DefaultKNORAUConfig()
	if weighted, ok := config["weighted"].(bool); ok {
		cfg.Weighted = weighted
	}

	deps := Dependencies{}
	if pool, ok := config["pool"].(ports.Pool); ok {
		deps.Pool = pool
	}
	if region, ok := config["region_provider"].(ports.RegionProvider); ok {
		deps.Region = region
	}
	if mask, ok := config["mask_provider"].(ports.MaskProvider); ok {
		deps.Mask = mask
	}
	if table, ok := config["correctness_table"].(*domain.CorrectnessTable); ok {
		deps.Table = table
	}
	if metrics, ok := config["metrics_collector"].(ports.MetricsCollector); ok {
		deps.Metrics = metrics
	}

	return NewKNORAU(id, cfg, deps)
}
