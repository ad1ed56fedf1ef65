package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dynsel/dynsel/infrastructure/middleware"
	"github.com/dynsel/dynsel/infrastructure/neighbors"
	"github.com/dynsel/dynsel/infrastructure/pruning"
	"github.com/dynsel/dynsel/infrastructure/strategies"
	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

// Engine wires a trained classifier pool, the selection-set artifacts built
// at fit time, and a selection strategy into a query-time classification
// service.
//
// An Engine must be fitted exactly once before classification. After Fit
// returns, every artifact the engine reads is immutable, so independent
// queries may be classified concurrently without locking.
type Engine struct {
	config  Config
	pool    ports.Pool
	metrics ports.MetricsCollector

	// mu serializes Fit against itself; classification only reads.
	mu       sync.Mutex
	fitted   bool
	labels   []domain.Label
	table    *domain.CorrectnessTable
	provider *neighbors.KNNProvider
	strategy ports.Strategy
}

// Option configures optional engine dependencies.
type Option func(*Engine)

// WithMetricsCollector attaches a metrics collector to the engine and the
// strategies it creates.
func WithMetricsCollector(collector ports.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// NewEngine creates an unfitted engine over the given pool.
// Returns an error if the configuration or the pool is invalid.
func NewEngine(config Config, pool ports.Pool, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := pool.Validate(); err != nil {
		return nil, fmt.Errorf("pool validation failed: %w", err)
	}

	engine := &Engine{config: config, pool: pool}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Fit runs the offline pass over the dynamic selection set: every pool
// classifier predicts every selection-set sample, and the correctness of
// each prediction is recorded in the correctness table. Fit then builds the
// neighbor index, the pruning provider when enabled, and the configured
// selection strategy.
//
// Classifiers are evaluated concurrently, one goroutine per classifier,
// bounded by the configured concurrency. The first prediction failure aborts
// the fit.
func (e *Engine) Fit(ctx context.Context, dsel domain.Dataset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := dsel.Validate(); err != nil {
		return err
	}

	labels := make([]domain.Label, dsel.Len())
	for i, l := range dsel.Labels {
		labels[i] = e.normalize(l)
	}

	pool := e.pool
	if e.config.NormalizeLabels {
		pool = middleware.WrapPool(pool, middleware.NormalizeLabelsMiddleware())
	}

	table, err := domain.NewCorrectnessTable(dsel.Len(), pool.Len())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.config.Concurrency > 0 {
		g.SetLimit(e.config.Concurrency)
	}
	for clfIndex, clf := range pool {
		clfIndex, clf := clfIndex, clf
		g.Go(func() error {
			// Each goroutine writes only its own column.
			for sampleIndex, sample := range dsel.Samples {
				predicted, err := clf.Predict(gctx, sample)
				if err != nil {
					return fmt.Errorf("fit: classifier %d on sample %d: %w",
						clfIndex, sampleIndex, err)
				}
				table.Set(sampleIndex, clfIndex, predicted == labels[sampleIndex])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	provider, err := neighbors.NewKNNProvider(neighbors.KNNConfig{
		K:      e.config.K,
		Metric: e.config.Metric,
	}, domain.Dataset{Samples: dsel.Samples, Labels: labels})
	if err != nil {
		return err
	}

	var mask ports.MaskProvider
	if e.config.DFP {
		mask, err = pruning.NewFrienemyProvider(provider, labels, table)
		if err != nil {
			return err
		}
	}

	registry := NewDefaultStrategyRegistry(Collaborators{
		Pool:    pool,
		Region:  provider,
		Mask:    mask,
		Table:   table,
		Metrics: e.metrics,
	})
	params, err := strategyParams(e.config.Strategy.Parameters)
	if err != nil {
		return err
	}
	strategy, err := registry.CreateStrategy(e.config.Strategy.Type, e.config.Strategy.ID, params)
	if err != nil {
		return err
	}

	e.labels = labels
	e.table = table
	e.provider = provider
	e.strategy = strategy
	e.fitted = true
	return nil
}

// Classify predicts the label of a single query. When instance-hardness
// routing is enabled and the query's region is easy, the engine answers with
// the plain nearest-neighbor majority instead of dynamic selection.
func (e *Engine) Classify(ctx context.Context, query domain.Sample) (domain.Label, error) {
	if !e.fitted {
		return "", domain.ErrNotFitted
	}

	if e.config.WithIH {
		label, routed, err := e.hardnessRoute(ctx, query)
		if err != nil {
			return "", err
		}
		if routed {
			return label, nil
		}
	}

	return e.strategy.ClassifyInstance(ctx, query)
}

// Explain classifies a single query and returns the decision together with
// the competence vector and vote sequence that produced it. It always runs
// the full dynamic selection path, bypassing instance-hardness routing.
func (e *Engine) Explain(ctx context.Context, query domain.Sample) (domain.Decision, error) {
	if !e.fitted {
		return domain.Decision{}, domain.ErrNotFitted
	}

	competence, err := e.strategy.EstimateCompetence(ctx, query)
	if err != nil {
		return domain.Decision{}, err
	}
	votes, err := e.strategy.Select(ctx, query)
	if err != nil {
		return domain.Decision{}, err
	}
	label, err := strategies.PluralityVote(votes)
	if err != nil {
		return domain.Decision{}, err
	}

	fallback := true
	for _, c := range competence {
		if c != 0 {
			fallback = false
			break
		}
	}

	return domain.Decision{
		Label:      label,
		Strategy:   e.strategy.Name(),
		Competence: competence,
		Votes:      votes,
		Fallback:   fallback,
	}, nil
}

// ClassifyBatch classifies independent queries concurrently. The returned
// labels are index-aligned with the queries, and the batch carries a unique
// run identifier for correlation. The first failure cancels the remaining
// queries and aborts the batch.
func (e *Engine) ClassifyBatch(ctx context.Context, queries []domain.Sample) (domain.BatchResult, error) {
	if !e.fitted {
		return domain.BatchResult{}, domain.ErrNotFitted
	}

	result := domain.BatchResult{
		RunID:  uuid.NewString(),
		Labels: make([]domain.Label, len(queries)),
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	if e.config.Concurrency > 0 {
		g.SetLimit(e.config.Concurrency)
	}
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			label, err := e.Classify(gctx, query)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			result.Labels[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchResult{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordLatency("classify_batch", time.Since(start),
			map[string]string{"strategy": e.strategy.Name()})
	}
	return result, nil
}

// Score classifies every sample and returns the fraction predicted
// correctly against the given true labels.
func (e *Engine) Score(ctx context.Context, samples []domain.Sample, truth []domain.Label) (float64, error) {
	if len(samples) != len(truth) {
		return 0, fmt.Errorf("samples (%d) and labels (%d) length mismatch",
			len(samples), len(truth))
	}
	if len(samples) == 0 {
		return 0, fmt.Errorf("no samples to score")
	}

	result, err := e.ClassifyBatch(ctx, samples)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i, label := range result.Labels {
		if label == e.normalize(truth[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), nil
}

// Strategy returns the fitted selection strategy for direct diagnostic use,
// or nil before fit.
func (e *Engine) Strategy() ports.Strategy { return e.strategy }

// hardnessRoute decides whether the query's region is easy enough to answer
// with plain nearest-neighbor majority. Hardness is the disagreement of the
// indecision region: the fraction of its neighbors outside the majority
// class. A region below the configured rate is answered directly by that
// majority, nearest neighbor first on ties.
func (e *Engine) hardnessRoute(ctx context.Context, query domain.Sample) (domain.Label, bool, error) {
	region, err := e.provider.RegionOfCompetence(ctx, query)
	if err != nil {
		return "", false, fmt.Errorf("region of competence: %w", err)
	}
	region = region.Truncate(e.config.safeK())

	neighborLabels := make([]domain.Label, region.Size())
	counts := make(map[domain.Label]int, region.Size())
	majority := 0
	for i, idx := range region.Indices {
		label := e.labels[idx]
		neighborLabels[i] = label
		counts[label]++
		if counts[label] > majority {
			majority = counts[label]
		}
	}

	hardness := 1 - float64(majority)/float64(region.Size())
	if hardness >= e.config.IHRate {
		return "", false, nil
	}

	label, err := strategies.PluralityVote(neighborLabels)
	if err != nil {
		return "", false, err
	}
	if e.metrics != nil {
		e.metrics.RecordCounter("classifications_total", 1,
			map[string]string{"strategy": "knn_bypass", "status": "success"})
	}
	return label, true, nil
}

func (e *Engine) normalize(label domain.Label) domain.Label {
	if e.config.NormalizeLabels {
		return domain.NormalizeLabel(string(label))
	}
	return label
}
