package domain

import "fmt"

// Sample is a single feature vector. Queries and dynamic-selection-set
// samples share this representation and must agree on dimensionality.
type Sample []float64

// Clone returns an independent copy of the sample.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	copy(out, s)
	return out
}

// Dataset holds the dynamic selection set (DSEL): the held-out samples and
// their true labels used to estimate classifier competence at query time.
// A Dataset is fixed at fit time and treated as read-only afterwards.
type Dataset struct {
	// Samples are the selection-set feature vectors, row-aligned with Labels.
	Samples []Sample

	// Labels are the true labels of the selection-set samples.
	Labels []Label
}

// Len returns the number of samples in the selection set.
func (d Dataset) Len() int { return len(d.Samples) }

// Dims returns the feature dimensionality of the selection set, or zero for
// an empty set.
func (d Dataset) Dims() int {
	if len(d.Samples) == 0 {
		return 0
	}
	return len(d.Samples[0])
}

// Validate checks the structural integrity of the selection set: it must be
// non-empty, samples and labels must align, and every sample must share the
// same dimensionality. All problems found are reported together.
func (d Dataset) Validate() error {
	verr := NewValidationError("dataset")

	if len(d.Samples) == 0 {
		verr.AddError("selection set has no samples")
	}
	if len(d.Samples) != len(d.Labels) {
		verr.AddError(fmt.Sprintf("samples (%d) and labels (%d) length mismatch",
			len(d.Samples), len(d.Labels)))
	}

	dims := d.Dims()
	for i, s := range d.Samples {
		if len(s) != dims {
			verr.AddError(fmt.Sprintf("sample %d has %d features, want %d", i, len(s), dims))
			break
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// CorrectnessTable records, for every selection-set sample and every pool
// classifier, whether the classifier predicted the sample's true label during
// the offline fit pass. Rows index samples, columns index classifiers.
// The table is written once during fit and read-only thereafter.
type CorrectnessTable struct {
	rows  int
	cols  int
	cells []uint8
}

// NewCorrectnessTable creates an all-zero table for the given selection-set
// size and pool size.
func NewCorrectnessTable(samples, classifiers int) (*CorrectnessTable, error) {
	if samples <= 0 || classifiers <= 0 {
		return nil, fmt.Errorf("%w: samples=%d, classifiers=%d",
			ErrInvalidTableShape, samples, classifiers)
	}
	return &CorrectnessTable{
		rows:  samples,
		cols:  classifiers,
		cells: make([]uint8, samples*classifiers),
	}, nil
}

// Rows returns the number of selection-set samples the table covers.
func (t *CorrectnessTable) Rows() int { return t.rows }

// Cols returns the number of pool classifiers the table covers.
func (t *CorrectnessTable) Cols() int { return t.cols }

// Set marks whether the classifier predicted the sample's true label.
// Indices outside the table panic; fit is the only writer and controls both
// axes.
func (t *CorrectnessTable) Set(sample, classifier int, correct bool) {
	if correct {
		t.cells[sample*t.cols+classifier] = 1
	} else {
		t.cells[sample*t.cols+classifier] = 0
	}
}

// Correct reports whether the classifier predicted the sample's true label.
func (t *CorrectnessTable) Correct(sample, classifier int) bool {
	return t.cells[sample*t.cols+classifier] == 1
}
