// Package neighbors provides region-of-competence lookup over the dynamic
// selection set. It implements the ports.RegionProvider interface with a
// brute-force k-nearest-neighbor search, which is exact and fast enough for
// the selection-set sizes dynamic selection operates on.
package neighbors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

var _ ports.RegionProvider = (*KNNProvider)(nil)

// Metric names a distance function over feature vectors.
type Metric string

// Supported distance metrics.
const (
	// MetricEuclidean is the L2 distance.
	MetricEuclidean Metric = "euclidean"
	// MetricManhattan is the L1 distance.
	MetricManhattan Metric = "manhattan"
)

// Common errors returned by the k-NN provider.
var (
	// ErrKExceedsSamples is returned when k is larger than the selection set.
	ErrKExceedsSamples = errors.New("k exceeds selection set size")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// KNNConfig defines the configuration parameters for the KNNProvider.
// All fields are validated during provider creation.
type KNNConfig struct {
	// K is the region-of-competence size: the number of nearest selection-set
	// neighbors returned per query.
	K int `yaml:"k" json:"k" validate:"required,min=1"`

	// Metric selects the distance function used for the neighbor search.
	Metric Metric `yaml:"metric" json:"metric" validate:"required,oneof=euclidean manhattan"`
}

// DefaultKNNConfig returns a KNNConfig with the conventional defaults of the
// dynamic selection literature: k of 7 under euclidean distance.
func DefaultKNNConfig() KNNConfig {
	return KNNConfig{K: 7, Metric: MetricEuclidean}
}

// KNNProvider resolves a query's region of competence by exhaustive nearest
// neighbor search over a fixed copy of the selection-set samples.
// The provider is immutable after construction and safe for concurrent use.
type KNNProvider struct {
	// config contains the validated configuration parameters.
	config KNNConfig
	// samples is the provider's own copy of the selection-set vectors.
	samples []domain.Sample
	// dims is the feature dimensionality every query must match.
	dims int
	// distance is the metric function selected by config.
	distance func(a, b domain.Sample) float64
}

// NewKNNProvider creates a provider over the given selection set.
// The samples are copied so later mutation of the caller's dataset cannot
// affect neighbor lookups. Returns an error if configuration validation
// fails, the dataset is malformed, or k exceeds the selection set size.
func NewKNNProvider(config KNNConfig, dsel domain.Dataset) (*KNNProvider, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := dsel.Validate(); err != nil {
		return nil, fmt.Errorf("selection set validation failed: %w", err)
	}
	if config.K > dsel.Len() {
		return nil, fmt.Errorf("%w: k=%d, samples=%d", ErrKExceedsSamples, config.K, dsel.Len())
	}

	var distance func(a, b domain.Sample) float64
	switch config.Metric {
	case MetricEuclidean:
		distance = euclidean
	case MetricManhattan:
		distance = manhattan
	default:
		return nil, fmt.Errorf("unknown metric: %s", config.Metric)
	}

	samples := make([]domain.Sample, dsel.Len())
	for i, s := range dsel.Samples {
		samples[i] = s.Clone()
	}

	return &KNNProvider{
		config:   config,
		samples:  samples,
		dims:     dsel.Dims(),
		distance: distance,
	}, nil
}

// K returns the configured region size.
func (p *KNNProvider) K() int { return p.config.K }

// RegionOfCompetence returns the indices and distances of the query's k
// nearest selection-set neighbors, nearest first. Distance ties resolve to
// the lower selection-set index so repeated queries are deterministic.
// Queries whose dimensionality does not match the selection set are
// rejected; this is where malformed queries surface.
func (p *KNNProvider) RegionOfCompetence(ctx context.Context, query domain.Sample) (domain.Region, error) {
	if err := ctx.Err(); err != nil {
		return domain.Region{}, err
	}
	if len(query) != p.dims {
		return domain.Region{}, fmt.Errorf("%w: got %d features, want %d",
			domain.ErrDimensionMismatch, len(query), p.dims)
	}

	type neighbor struct {
		index    int
		distance float64
	}
	candidates := make([]neighbor, len(p.samples))
	for i, s := range p.samples {
		candidates[i] = neighbor{index: i, distance: p.distance(query, s)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].index < candidates[j].index
	})

	region := domain.Region{
		Indices:   make([]int, p.config.K),
		Distances: make([]float64, p.config.K),
	}
	for i := 0; i < p.config.K; i++ {
		region.Indices[i] = candidates[i].index
		region.Distances[i] = candidates[i].distance
	}
	return region, nil
}

func euclidean(a, b domain.Sample) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func manhattan(a, b domain.Sample) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}
