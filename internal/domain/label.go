// Package domain contains pure, dependency-light domain models and types
// for the dynamic selection core.
package domain

import "golang.org/x/text/cases"

// foldCaser is a package-level Unicode case folder for performance.
// This avoids creating a new caser for each label normalization.
var foldCaser = cases.Fold()

// Label is a categorical class label. Labels compare by exact equality;
// pools whose members emit inconsistent casings should be normalized with
// NormalizeLabel before comparison.
type Label string

// NormalizeLabel returns the Unicode case-folded form of a raw label string.
// Folding is stricter than lowercasing and is stable across locales, making
// it safe to apply to both dynamic-selection-set labels and classifier
// outputs before correctness comparison.
func NormalizeLabel(raw string) Label {
	return Label(foldCaser.String(raw))
}
