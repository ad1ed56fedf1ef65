// Package pruning provides inclusion-mask providers for dynamic selection.
// It implements the ports.MaskProvider interface, including dynamic frienemy
// pruning (DFP): excluding classifiers unlikely to help for a given query's
// region of competence.
package pruning

import (
	"context"
	"fmt"

	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

var (
	_ ports.MaskProvider = (*FrienemyProvider)(nil)
	_ ports.MaskProvider = (*PassThroughProvider)(nil)
)

// FrienemyProvider implements dynamic frienemy pruning over the fitted
// correctness table.
//
// When the query's region of competence spans more than one class (an
// indecision region), only classifiers that correctly classified at least
// one region neighbor survive. A consensual region applies no pruning, and
// if no classifier would survive, all are kept rather than emptying the
// pool: pruning narrows the competence estimate, it never silences it.
//
// The provider recomputes its mask per query and is safe for concurrent use.
type FrienemyProvider struct {
	// region supplies the query's nearest selection-set neighbors.
	region ports.RegionProvider
	// labels are the true selection-set labels, row-aligned with the table.
	labels []domain.Label
	// table is the fit-time correctness record over the selection set.
	table *domain.CorrectnessTable
}

// NewFrienemyProvider creates a frienemy pruning provider over the given
// region provider, selection-set labels, and correctness table.
func NewFrienemyProvider(
	region ports.RegionProvider,
	labels []domain.Label,
	table *domain.CorrectnessTable,
) (*FrienemyProvider, error) {
	if region == nil {
		return nil, fmt.Errorf("region provider cannot be nil")
	}
	if table == nil {
		return nil, fmt.Errorf("correctness table cannot be nil")
	}
	if len(labels) != table.Rows() {
		return nil, fmt.Errorf("%w: labels=%d, table rows=%d",
			domain.ErrPoolMismatch, len(labels), table.Rows())
	}
	return &FrienemyProvider{region: region, labels: labels, table: table}, nil
}

// InclusionMask computes the per-query pruning mask, one entry per
// classifier column of the correctness table.
func (p *FrienemyProvider) InclusionMask(ctx context.Context, query domain.Sample) ([]bool, error) {
	region, err := p.region.RegionOfCompetence(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("region of competence: %w", err)
	}
	if err := region.Validate(p.table.Rows()); err != nil {
		return nil, fmt.Errorf("region of competence: %w", err)
	}

	mask := make([]bool, p.table.Cols())

	if !p.indecision(region) {
		for i := range mask {
			mask[i] = true
		}
		return mask, nil
	}

	survivors := 0
	for clfIndex := range mask {
		for _, neighbor := range region.Indices {
			if p.table.Correct(neighbor, clfIndex) {
				mask[clfIndex] = true
				survivors++
				break
			}
		}
	}

	// Nothing survived: keep the whole pool rather than prune it away.
	if survivors == 0 {
		for i := range mask {
			mask[i] = true
		}
	}
	return mask, nil
}

// indecision reports whether the region's neighbors span more than one class.
func (p *FrienemyProvider) indecision(region domain.Region) bool {
	first := p.labels[region.Indices[0]]
	for _, idx := range region.Indices[1:] {
		if p.labels[idx] != first {
			return true
		}
	}
	return false
}

// PassThroughProvider returns an all-true mask of a fixed size. It stands in
// for frienemy pruning when pruning is disabled.
type PassThroughProvider struct {
	size int
}

// NewPassThroughProvider creates a provider that marks all n classifiers
// eligible for every query.
func NewPassThroughProvider(n int) (*PassThroughProvider, error) {
	if n <= 0 {
		return nil, domain.ErrEmptyPool
	}
	return &PassThroughProvider{size: n}, nil
}

// InclusionMask returns an all-true mask regardless of the query.
func (p *PassThroughProvider) InclusionMask(_ context.Context, _ domain.Sample) ([]bool, error) {
	mask := make([]bool, p.size)
	for i := range mask {
		mask[i] = true
	}
	return mask, nil
}
