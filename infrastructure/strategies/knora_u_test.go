package strategies

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

type stubClassifier struct {
	label domain.Label
	err   error
	calls atomic.Int32
}

func (s *stubClassifier) Predict(_ context.Context, _ domain.Sample) (domain.Label, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.label, nil
}

type stubRegionProvider struct {
	region domain.Region
	err    error
}

func (s stubRegionProvider) RegionOfCompetence(_ context.Context, _ domain.Sample) (domain.Region, error) {
	return s.region, s.err
}

type stubMaskProvider struct {
	mask []bool
	err  error
}

func (s stubMaskProvider) InclusionMask(_ context.Context, _ domain.Sample) ([]bool, error) {
	return s.mask, s.err
}

// buildTable creates a correctness table from per-sample rows of 0/1 cells,
// one column per classifier.
func buildTable(t *testing.T, rows [][]int) *domain.CorrectnessTable {
	t.Helper()
	require.NotEmpty(t, rows)

	table, err := domain.NewCorrectnessTable(len(rows), len(rows[0]))
	require.NoError(t, err)
	for i, row := range rows {
		for j, cell := range row {
			table.Set(i, j, cell == 1)
		}
	}
	return table
}

func newPool(labels ...domain.Label) (ports.Pool, []*stubClassifier) {
	stubs := make([]*stubClassifier, len(labels))
	pool := make(ports.Pool, len(labels))
	for i, l := range labels {
		stubs[i] = &stubClassifier{label: l}
		pool[i] = stubs[i]
	}
	return pool, stubs
}

func fullRegion(n int) domain.Region {
	region := domain.Region{Indices: make([]int, n), Distances: make([]float64, n)}
	for i := 0; i < n; i++ {
		region.Indices[i] = i
		region.Distances[i] = float64(i)
	}
	return region
}

func TestKNORAU_EstimateCompetence(t *testing.T) {
	tests := []struct {
		name               string
		table              [][]int
		region             domain.Region
		mask               ports.MaskProvider
		poolLabels         []domain.Label
		expectedCompetence []int
	}{
		{
			name: "counts correct neighbors per classifier",
			table: [][]int{
				{1, 0, 0},
				{1, 1, 0},
				{0, 0, 0},
			},
			region:             fullRegion(3),
			poolLabels:         []domain.Label{"A", "B", "C"},
			expectedCompetence: []int{2, 1, 0},
		},
		{
			name: "only region rows are counted",
			table: [][]int{
				{1, 1},
				{1, 1},
				{0, 1},
				{1, 0},
			},
			region:             domain.Region{Indices: []int{2, 3}},
			poolLabels:         []domain.Label{"A", "B"},
			expectedCompetence: []int{1, 1},
		},
		{
			name: "pruned classifiers never accrue competence",
			table: [][]int{
				{1, 1, 0},
				{1, 1, 0},
				{1, 0, 0},
			},
			region:             fullRegion(3),
			mask:               stubMaskProvider{mask: []bool{false, true, true}},
			poolLabels:         []domain.Label{"A", "B", "C"},
			expectedCompetence: []int{0, 2, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, _ := newPool(tt.poolLabels...)
			strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
				Pool:   pool,
				Region: stubRegionProvider{region: tt.region},
				Mask:   tt.mask,
				Table:  buildTable(t, tt.table),
			})
			require.NoError(t, err)

			competence, err := strategy.EstimateCompetence(context.Background(), domain.Sample{0})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCompetence, competence)

			// One entry per pool classifier, each bounded by the region size.
			assert.Len(t, competence, len(pool))
			for _, c := range competence {
				assert.GreaterOrEqual(t, c, 0)
				assert.LessOrEqual(t, c, tt.region.Size())
			}
		})
	}
}

func TestKNORAU_Select_ClearWinner(t *testing.T) {
	// Classifier 0 correct on 2/3 neighbors, classifier 1 on 1/3,
	// classifier 2 on none.
	pool, stubs := newPool("A", "B", "C")
	strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
		Pool:   pool,
		Region: stubRegionProvider{region: fullRegion(3)},
		Table: buildTable(t, [][]int{
			{1, 0, 0},
			{1, 1, 0},
			{0, 0, 0},
		}),
	})
	require.NoError(t, err)

	votes, err := strategy.Select(context.Background(), domain.Sample{0})
	require.NoError(t, err)

	assert.Equal(t, []domain.Label{"A", "A", "B"}, votes)

	// Every pool member is queried exactly once, zero weight included.
	for _, s := range stubs {
		assert.Equal(t, int32(1), s.calls.Load())
	}
}

func TestKNORAU_Select_FallbackUsesEntirePool(t *testing.T) {
	// No classifier is correct on any neighbor, so the uniform fallback
	// fires: one vote per classifier, pruned members included.
	pool, _ := newPool("A", "B", "B")
	strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
		Pool:   pool,
		Region: stubRegionProvider{region: fullRegion(3)},
		Mask:   stubMaskProvider{mask: []bool{false, true, true}},
		Table: buildTable(t, [][]int{
			{1, 0, 0}, // classifier 0 is correct here but pruned
			{1, 0, 0},
			{0, 0, 0},
		}),
	})
	require.NoError(t, err)

	competence, err := strategy.EstimateCompetence(context.Background(), domain.Sample{0})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, competence)

	votes, err := strategy.Select(context.Background(), domain.Sample{0})
	require.NoError(t, err)
	assert.Equal(t, []domain.Label{"A", "B", "B"}, votes)
	assert.Len(t, votes, pool.Len())
}

func TestKNORAU_Select_VoteLengthEqualsCompetenceSum(t *testing.T) {
	pool, _ := newPool("A", "B", "C")
	strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
		Pool:   pool,
		Region: stubRegionProvider{region: fullRegion(4)},
		Table: buildTable(t, [][]int{
			{1, 1, 1},
			{1, 1, 0},
			{1, 0, 0},
			{1, 0, 0},
		}),
	})
	require.NoError(t, err)

	competence, err := strategy.EstimateCompetence(context.Background(), domain.Sample{0})
	require.NoError(t, err)

	sum := 0
	for _, c := range competence {
		sum += c
	}

	votes, err := strategy.Select(context.Background(), domain.Sample{0})
	require.NoError(t, err)
	assert.Len(t, votes, sum)
}

func TestKNORAU_ClassifyInstance(t *testing.T) {
	tests := []struct {
		name          string
		table         [][]int
		mask          ports.MaskProvider
		poolLabels    []domain.Label
		expectedLabel domain.Label
	}{
		{
			name: "clear winner by competence",
			table: [][]int{
				{1, 0, 0},
				{1, 1, 0},
				{0, 0, 0},
			},
			poolLabels:    []domain.Label{"A", "B", "C"},
			expectedLabel: "A",
		},
		{
			name: "fallback resolves by pool-order tie break",
			table: [][]int{
				{0, 0, 0},
				{0, 0, 0},
				{0, 0, 0},
			},
			poolLabels:    []domain.Label{"C", "B", "A"},
			expectedLabel: "C",
		},
		{
			name: "fallback majority wins",
			table: [][]int{
				{0, 0, 0},
				{0, 0, 0},
				{0, 0, 0},
			},
			poolLabels:    []domain.Label{"A", "B", "B"},
			expectedLabel: "B",
		},
		{
			name: "pruned top classifier yields to masked-in competence",
			table: [][]int{
				{1, 0, 1},
				{1, 0, 1},
				{1, 1, 0},
			},
			mask:          stubMaskProvider{mask: []bool{false, true, true}},
			poolLabels:    []domain.Label{"A", "B", "C"},
			expectedLabel: "C",
		},
		{
			name: "equal tallies resolve to earlier pool position",
			table: [][]int{
				{0, 1, 1},
				{0, 1, 1},
				{0, 0, 0},
			},
			poolLabels:    []domain.Label{"A", "Z", "B"},
			expectedLabel: "Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, _ := newPool(tt.poolLabels...)
			strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
				Pool:   pool,
				Region: stubRegionProvider{region: fullRegion(3)},
				Mask:   tt.mask,
				Table:  buildTable(t, tt.table),
			})
			require.NoError(t, err)

			label, err := strategy.ClassifyInstance(context.Background(), domain.Sample{0})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedLabel, label)

			votes, err := strategy.Select(context.Background(), domain.Sample{0})
			require.NoError(t, err)
			assert.Contains(t, votes, label)
		})
	}
}

func TestKNORAU_PropagatesCollaboratorFailures(t *testing.T) {
	regionErr := errors.New("bad query shape")
	maskErr := errors.New("pruning unavailable")
	predictErr := errors.New("model file corrupted")

	okTable := buildTable(t, [][]int{{1, 1}, {1, 1}})

	t.Run("region provider failure aborts", func(t *testing.T) {
		pool, _ := newPool("A", "B")
		strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
			Pool:   pool,
			Region: stubRegionProvider{err: regionErr},
			Table:  okTable,
		})
		require.NoError(t, err)

		_, err = strategy.ClassifyInstance(context.Background(), domain.Sample{0})
		assert.ErrorIs(t, err, regionErr)
	})

	t.Run("mask provider failure aborts", func(t *testing.T) {
		pool, _ := newPool("A", "B")
		strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
			Pool:   pool,
			Region: stubRegionProvider{region: fullRegion(2)},
			Mask:   stubMaskProvider{err: maskErr},
			Table:  okTable,
		})
		require.NoError(t, err)

		_, err = strategy.EstimateCompetence(context.Background(), domain.Sample{0})
		assert.ErrorIs(t, err, maskErr)
	})

	t.Run("classifier predict failure aborts with no partial result", func(t *testing.T) {
		failing := &stubClassifier{err: predictErr}
		pool := ports.Pool{&stubClassifier{label: "A"}, failing}
		strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
			Pool:   pool,
			Region: stubRegionProvider{region: fullRegion(2)},
			Table:  okTable,
		})
		require.NoError(t, err)

		votes, err := strategy.Select(context.Background(), domain.Sample{0})
		assert.ErrorIs(t, err, predictErr)
		assert.Nil(t, votes)
	})

	t.Run("region index outside selection set aborts", func(t *testing.T) {
		pool, _ := newPool("A", "B")
		strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
			Pool:   pool,
			Region: stubRegionProvider{region: domain.Region{Indices: []int{0, 99}}},
			Table:  okTable,
		})
		require.NoError(t, err)

		_, err = strategy.EstimateCompetence(context.Background(), domain.Sample{0})
		assert.ErrorIs(t, err, domain.ErrRegionOutOfRange)
	})

	t.Run("mask length mismatch aborts", func(t *testing.T) {
		pool, _ := newPool("A", "B")
		strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
			Pool:   pool,
			Region: stubRegionProvider{region: fullRegion(2)},
			Mask:   stubMaskProvider{mask: []bool{true}},
			Table:  okTable,
		})
		require.NoError(t, err)

		_, err = strategy.EstimateCompetence(context.Background(), domain.Sample{0})
		assert.ErrorIs(t, err, domain.ErrPoolMismatch)
	})
}

func TestNewKNORAU_Validation(t *testing.T) {
	pool, _ := newPool("A", "B")
	region := stubRegionProvider{region: fullRegion(2)}
	table := buildTable(t, [][]int{{1, 1}, {0, 1}})

	tests := []struct {
		name          string
		strategyName  string
		config        KNORAUConfig
		deps          Dependencies
		expectedError error
	}{
		{
			name:         "valid dependencies pass",
			strategyName: "knora_u",
			deps:         Dependencies{Pool: pool, Region: region, Table: table},
		},
		{
			name:          "empty name fails",
			strategyName:  "",
			deps:          Dependencies{Pool: pool, Region: region, Table: table},
			expectedError: ErrEmptyStrategyName,
		},
		{
			name:          "empty pool fails",
			strategyName:  "knora_u",
			deps:          Dependencies{Region: region, Table: table},
			expectedError: domain.ErrEmptyPool,
		},
		{
			name:          "nil region provider fails",
			strategyName:  "knora_u",
			deps:          Dependencies{Pool: pool, Table: table},
			expectedError: ErrNilRegionProvider,
		},
		{
			name:          "nil correctness table fails",
			strategyName:  "knora_u",
			deps:          Dependencies{Pool: pool, Region: region},
			expectedError: ErrNilCorrectnessTable,
		},
		{
			name:          "weighted voting rejected",
			strategyName:  "knora_u",
			config:        KNORAUConfig{Weighted: true},
			deps:          Dependencies{Pool: pool, Region: region, Table: table},
			expectedError: ErrWeightedVoting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := NewKNORAU(tt.strategyName, tt.config, tt.deps)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, strategy.Validate())
			assert.Equal(t, tt.strategyName, strategy.Name())
		})
	}

	t.Run("table column mismatch fails", func(t *testing.T) {
		wide := buildTable(t, [][]int{{1, 1, 1}})
		_, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
			Pool:   pool,
			Region: region,
			Table:  wide,
		})
		assert.ErrorIs(t, err, domain.ErrPoolMismatch)
	})
}

func TestKNORAU_UnmarshalParameters(t *testing.T) {
	pool, _ := newPool("A", "B")
	strategy, err := NewKNORAU("knora_u", DefaultKNORAUConfig(), Dependencies{
		Pool:   pool,
		Region: stubRegionProvider{region: fullRegion(2)},
		Table:  buildTable(t, [][]int{{1, 1}, {0, 1}}),
	})
	require.NoError(t, err)

	t.Run("accepts unweighted parameters", func(t *testing.T) {
		var params yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte("weighted: false"), &params))
		assert.NoError(t, strategy.UnmarshalParameters(*params.Content[0]))
	})

	t.Run("rejects weighted voting", func(t *testing.T) {
		var params yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte("weighted: true"), &params))
		assert.ErrorIs(t, strategy.UnmarshalParameters(*params.Content[0]), ErrWeightedVoting)
	})
}

func TestCreateKNORAUStrategy(t *testing.T) {
	pool, _ := newPool("A", "B")
	config := map[string]any{
		"pool":              pool,
		"region_provider":   stubRegionProvider{region: fullRegion(2)},
		"correctness_table": buildTable(t, [][]int{{1, 0}, {0, 1}}),
	}

	strategy, err := CreateKNORAUStrategy("knora_u", config)
	require.NoError(t, err)
	assert.Equal(t, "knora_u", strategy.Name())

	config["weighted"] = true
	_, err = CreateKNORAUStrategy("knora_u", config)
	assert.ErrorIs(t, err, ErrWeightedVoting)
}

func TestPluralityVote(t *testing.T) {
	tests := []struct {
		name          string
		votes         []domain.Label
		expectedLabel domain.Label
		expectedError error
	}{
		{
			name:          "plain majority",
			votes:         []domain.Label{"A", "B", "A"},
			expectedLabel: "A",
		},
		{
			name:          "tie resolves to earliest first occurrence",
			votes:         []domain.Label{"B", "A", "A", "B"},
			expectedLabel: "B",
		},
		{
			name:          "later strict majority beats earlier label",
			votes:         []domain.Label{"A", "B", "B"},
			expectedLabel: "B",
		},
		{
			name:          "single vote",
			votes:         []domain.Label{"C"},
			expectedLabel: "C",
		},
		{
			name:          "empty sequence fails",
			votes:         nil,
			expectedError: domain.ErrNoVotes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, err := PluralityVote(tt.votes)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedLabel, label)
		})
	}
}
