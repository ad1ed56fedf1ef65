package pruning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynsel/dynsel/internal/domain"
)

type stubRegionProvider struct {
	region domain.Region
	err    error
}

func (s stubRegionProvider) RegionOfCompetence(_ context.Context, _ domain.Sample) (domain.Region, error) {
	return s.region, s.err
}

func buildTable(t *testing.T, rows [][]int) *domain.CorrectnessTable {
	t.Helper()
	table, err := domain.NewCorrectnessTable(len(rows), len(rows[0]))
	require.NoError(t, err)
	for i, row := range rows {
		for j, cell := range row {
			table.Set(i, j, cell == 1)
		}
	}
	return table
}

func TestFrienemyProvider_InclusionMask(t *testing.T) {
	tests := []struct {
		name         string
		labels       []domain.Label
		table        [][]int
		region       domain.Region
		expectedMask []bool
	}{
		{
			name:   "consensual region keeps everyone",
			labels: []domain.Label{"a", "a", "a"},
			table: [][]int{
				{0, 0},
				{0, 0},
				{0, 0},
			},
			region:       domain.Region{Indices: []int{0, 1, 2}},
			expectedMask: []bool{true, true},
		},
		{
			name:   "indecision region prunes classifiers with no correct neighbor",
			labels: []domain.Label{"a", "b", "a"},
			table: [][]int{
				{1, 0},
				{0, 0},
				{1, 0},
			},
			region:       domain.Region{Indices: []int{0, 1, 2}},
			expectedMask: []bool{true, false},
		},
		{
			name:   "no survivors keeps the whole pool",
			labels: []domain.Label{"a", "b"},
			table: [][]int{
				{0, 0},
				{0, 0},
			},
			region:       domain.Region{Indices: []int{0, 1}},
			expectedMask: []bool{true, true},
		},
		{
			name:   "only region rows decide survival",
			labels: []domain.Label{"a", "b", "a"},
			table: [][]int{
				{0, 1},
				{0, 0},
				{1, 0}, // outside the region
			},
			region:       domain.Region{Indices: []int{0, 1}},
			expectedMask: []bool{false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewFrienemyProvider(
				stubRegionProvider{region: tt.region},
				tt.labels,
				buildTable(t, tt.table),
			)
			require.NoError(t, err)

			mask, err := provider.InclusionMask(context.Background(), domain.Sample{0})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedMask, mask)
		})
	}
}

func TestFrienemyProvider_PropagatesRegionFailure(t *testing.T) {
	regionErr := errors.New("lookup failed")
	provider, err := NewFrienemyProvider(
		stubRegionProvider{err: regionErr},
		[]domain.Label{"a", "b"},
		buildTable(t, [][]int{{1, 0}, {0, 1}}),
	)
	require.NoError(t, err)

	_, err = provider.InclusionMask(context.Background(), domain.Sample{0})
	assert.ErrorIs(t, err, regionErr)
}

func TestNewFrienemyProvider_Validation(t *testing.T) {
	table := buildTable(t, [][]int{{1}, {0}})

	_, err := NewFrienemyProvider(nil, []domain.Label{"a", "b"}, table)
	assert.Error(t, err)

	_, err = NewFrienemyProvider(stubRegionProvider{}, []domain.Label{"a", "b"}, nil)
	assert.Error(t, err)

	_, err = NewFrienemyProvider(stubRegionProvider{}, []domain.Label{"a"}, table)
	assert.Error(t, err)
}

func TestPassThroughProvider(t *testing.T) {
	provider, err := NewPassThroughProvider(3)
	require.NoError(t, err)

	mask, err := provider.InclusionMask(context.Background(), domain.Sample{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, mask)

	_, err = NewPassThroughProvider(0)
	assert.ErrorIs(t, err, domain.ErrEmptyPool)
}
