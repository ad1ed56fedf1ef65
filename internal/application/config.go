package application

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dynsel/dynsel/infrastructure/neighbors"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// Config defines the complete specification for a dynamic selection engine
// and serves as the primary configuration entry point for the system.
type Config struct {
	// K is the region-of-competence size used to estimate the competence of
	// the base classifiers.
	K int `yaml:"k" validate:"required,min=1"`

	// SafeK is the size of the indecision region used by instance-hardness
	// routing. Zero means "use K". Must not exceed K.
	SafeK int `yaml:"safe_k" validate:"omitempty,min=1,ltefield=K"`

	// Metric selects the distance function for the neighbor search.
	Metric neighbors.Metric `yaml:"metric" validate:"required,oneof=euclidean manhattan"`

	// DFP enables dynamic frienemy pruning of the pool per query.
	DFP bool `yaml:"dfp"`

	// WithIH enables instance-hardness routing: queries whose region is
	// easier than IHRate are answered by plain nearest-neighbor majority
	// instead of dynamic selection.
	WithIH bool `yaml:"with_ih"`

	// IHRate is the hardness threshold for instance-hardness routing.
	IHRate float64 `yaml:"ih_rate" validate:"min=0,max=1"`

	// NormalizeLabels applies Unicode case folding to selection-set labels
	// and classifier outputs before correctness comparison.
	NormalizeLabels bool `yaml:"normalize_labels"`

	// Concurrency bounds the number of goroutines used by the fit pass and
	// batch classification. Zero means one goroutine per classifier or query.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1"`

	// Strategy specifies the selection strategy to instantiate.
	Strategy StrategyConfig `yaml:"strategy" validate:"required"`
}

// StrategyConfig defines the specification for the selection strategy within
// an engine, including its type-specific parameters.
type StrategyConfig struct {
	// ID is the unique identifier for this strategy instance, used in
	// metrics and traces.
	ID string `yaml:"id" validate:"required,min=1,max=100"`

	// Type specifies the strategy implementation to instantiate.
	Type string `yaml:"type" validate:"required,min=1"`

	// Parameters contains type-specific configuration as flexible YAML that
	// is validated by the strategy itself.
	Parameters yaml.Node `yaml:"parameters"`
}

// DefaultConfig returns a Config with the conventional defaults of the
// dynamic selection literature: k of 7 under euclidean distance, pruning and
// hardness routing disabled, hardness threshold 0.3.
func DefaultConfig() Config {
	return Config{
		K:      7,
		Metric: neighbors.MetricEuclidean,
		IHRate: 0.3,
		Strategy: StrategyConfig{
			ID:   "knora_u",
			Type: "knora_u",
		},
	}
}

// Validate checks the configuration against its declared constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// safeK returns the effective indecision-region size.
func (c Config) safeK() int {
	if c.SafeK > 0 {
		return c.SafeK
	}
	return c.K
}

// LoadConfig reads a YAML engine configuration with strict decoding, so
// unknown fields are detected rather than silently ignored, and validates it.
func LoadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// strategyParams decodes the strategy's YAML parameters into the flat map
// form consumed by strategy factories. A zero-value node yields an empty map.
func strategyParams(node yaml.Node) (map[string]any, error) {
	params := make(map[string]any)
	if node.Kind == 0 {
		return params, nil
	}
	if err := node.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to decode strategy parameters: %w", err)
	}
	return params, nil
}
