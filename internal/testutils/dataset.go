package testutils

import (
	"math/rand"

	"github.com/dynsel/dynsel/internal/domain"
)

// BlobConfig controls synthetic dataset generation.
type BlobConfig struct {
	// PerClass is the number of samples generated per class.
	PerClass int
	// Centers are the class centers; one class is generated per center.
	Centers []domain.Sample
	// Labels name the classes, aligned with Centers.
	Labels []domain.Label
	// Spread is the standard deviation of the gaussian noise around each
	// center.
	Spread float64
}

// DefaultBlobConfig returns a two-class, two-dimensional configuration that
// is separable but noisy enough that no single weak learner is perfect.
func DefaultBlobConfig() BlobConfig {
	return BlobConfig{
		PerClass: 50,
		Centers:  []domain.Sample{{0, 0}, {3, 3}},
		Labels:   []domain.Label{"a", "b"},
		Spread:   1.0,
	}
}

// GenerateBlobs creates a synthetic gaussian-blob dataset for testing.
// The seed parameter controls randomization; use a fixed value for
// reproducible tests. Samples of all classes are interleaved so any prefix
// split keeps both classes represented.
func GenerateBlobs(config BlobConfig, seed int64) domain.Dataset {
	rng := rand.New(rand.NewSource(seed))

	dataset := domain.Dataset{
		Samples: make([]domain.Sample, 0, config.PerClass*len(config.Centers)),
		Labels:  make([]domain.Label, 0, config.PerClass*len(config.Centers)),
	}

	for i := 0; i < config.PerClass; i++ {
		for c, center := range config.Centers {
			sample := make(domain.Sample, len(center))
			for d, v := range center {
				sample[d] = v + rng.NormFloat64()*config.Spread
			}
			dataset.Samples = append(dataset.Samples, sample)
			dataset.Labels = append(dataset.Labels, config.Labels[c])
		}
	}
	return dataset
}

// SplitDataset partitions a dataset into two parts at the given fraction of
// its length. The input ordering is preserved; pair with GenerateBlobs'
// interleaving for class-balanced splits.
func SplitDataset(data domain.Dataset, fraction float64) (domain.Dataset, domain.Dataset) {
	cut := int(float64(data.Len()) * fraction)
	first := domain.Dataset{Samples: data.Samples[:cut], Labels: data.Labels[:cut]}
	second := domain.Dataset{Samples: data.Samples[cut:], Labels: data.Labels[cut:]}
	return first, second
}

// BootstrapPoolData resamples the training data with replacement, producing
// one dataset per pool member so each base classifier trains on a different
// view of the data.
func BootstrapPoolData(data domain.Dataset, members int, seed int64) []domain.Dataset {
	rng := rand.New(rand.NewSource(seed))

	pools := make([]domain.Dataset, members)
	for m := 0; m < members; m++ {
		resampled := domain.Dataset{
			Samples: make([]domain.Sample, data.Len()),
			Labels:  make([]domain.Label, data.Len()),
		}
		for i := 0; i < data.Len(); i++ {
			j := rng.Intn(data.Len())
			resampled.Samples[i] = data.Samples[j]
			resampled.Labels[i] = data.Labels[j]
		}
		pools[m] = resampled
	}
	return pools
}
