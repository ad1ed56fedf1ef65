// Package testutils provides utilities for testing, including stub
// collaborators and test data generators. These components are intended for
// internal use within the project's test suites and the bundled demo
// command, and are not part of the public API.
package testutils

import (
	"context"
	"math"

	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

// StubClassifier predicts a fixed label, or fails with a fixed error.
type StubClassifier struct {
	// Label is returned by every Predict call when Err is nil.
	Label domain.Label
	// Err, when set, is returned by every Predict call.
	Err error
}

// Predict implements the ports.Classifier interface.
func (s StubClassifier) Predict(_ context.Context, _ domain.Sample) (domain.Label, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Label, nil
}

// ClassifierFunc adapts a plain function to the ports.Classifier interface.
type ClassifierFunc func(ctx context.Context, query domain.Sample) (domain.Label, error)

// Predict implements the ports.Classifier interface.
func (f ClassifierFunc) Predict(ctx context.Context, query domain.Sample) (domain.Label, error) {
	return f(ctx, query)
}

// StaticRegionProvider returns a fixed region for every query.
type StaticRegionProvider struct {
	// Region is returned by every lookup when Err is nil.
	Region domain.Region
	// Err, when set, is returned by every lookup.
	Err error
}

// RegionOfCompetence implements the ports.RegionProvider interface.
func (s StaticRegionProvider) RegionOfCompetence(_ context.Context, _ domain.Sample) (domain.Region, error) {
	if s.Err != nil {
		return domain.Region{}, s.Err
	}
	return s.Region, nil
}

// StaticMaskProvider returns a fixed inclusion mask for every query.
type StaticMaskProvider struct {
	// Mask is returned by every lookup when Err is nil.
	Mask []bool
	// Err, when set, is returned by every lookup.
	Err error
}

// InclusionMask implements the ports.MaskProvider interface.
func (s StaticMaskProvider) InclusionMask(_ context.Context, _ domain.Sample) ([]bool, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Mask, nil
}

// CentroidClassifier predicts the label of the nearest class centroid.
// It is a deliberately weak but deterministic base learner for pool
// construction in tests and demos.
type CentroidClassifier struct {
	centroids map[domain.Label]domain.Sample
	order     []domain.Label
}

var _ ports.Classifier = (*CentroidClassifier)(nil)

// TrainCentroidClassifier computes one centroid per class over the given
// training data. Class order follows first appearance in the data, making
// nearest-centroid ties deterministic.
func TrainCentroidClassifier(data domain.Dataset) (*CentroidClassifier, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	sums := make(map[domain.Label]domain.Sample)
	counts := make(map[domain.Label]int)
	order := make([]domain.Label, 0)
	for i, sample := range data.Samples {
		label := data.Labels[i]
		if _, ok := sums[label]; !ok {
			sums[label] = make(domain.Sample, len(sample))
			order = append(order, label)
		}
		for d, v := range sample {
			sums[label][d] += v
		}
		counts[label]++
	}

	centroids := make(map[domain.Label]domain.Sample, len(sums))
	for label, sum := range sums {
		centroid := make(domain.Sample, len(sum))
		for d, v := range sum {
			centroid[d] = v / float64(counts[label])
		}
		centroids[label] = centroid
	}

	return &CentroidClassifier{centroids: centroids, order: order}, nil
}

// Predict implements the ports.Classifier interface.
func (c *CentroidClassifier) Predict(ctx context.Context, query domain.Sample) (domain.Label, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	best := c.order[0]
	bestDistance := math.Inf(1)
	for _, label := range c.order {
		centroid := c.centroids[label]
		var sum float64
		for d := range query {
			diff := query[d] - centroid[d]
			sum += diff * diff
		}
		if sum < bestDistance {
			bestDistance = sum
			best = label
		}
	}
	return best, nil
}
