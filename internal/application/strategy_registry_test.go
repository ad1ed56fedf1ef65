package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
	"github.com/dynsel/dynsel/internal/testutils"
)

func testCollaborators(t *testing.T) Collaborators {
	t.Helper()

	table, err := domain.NewCorrectnessTable(2, 2)
	require.NoError(t, err)

	return Collaborators{
		Pool: ports.Pool{
			testutils.StubClassifier{Label: "a"},
			testutils.StubClassifier{Label: "b"},
		},
		Region: testutils.StaticRegionProvider{Region: domain.Region{Indices: []int{0, 1}}},
		Table:  table,
	}
}

func TestDefaultStrategyRegistry_CreateStrategy(t *testing.T) {
	registry := NewDefaultStrategyRegistry(testCollaborators(t))

	strategy, err := registry.CreateStrategy("knora_u", "union", nil)
	require.NoError(t, err)
	assert.Equal(t, "union", strategy.Name())
	assert.NoError(t, strategy.Validate())

	label, err := strategy.ClassifyInstance(context.Background(), domain.Sample{0})
	require.NoError(t, err)
	assert.NotEmpty(t, label)
}

func TestDefaultStrategyRegistry_UnknownTypeSuggestion(t *testing.T) {
	registry := NewDefaultStrategyRegistry(testCollaborators(t))

	_, err := registry.CreateStrategy("knorau", "union", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported strategy type")
	assert.Contains(t, err.Error(), `did you mean "knora_u"`)

	// A name nothing like any registered type gets no suggestion.
	_, err = registry.CreateStrategy("meta_learner", "union", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestDefaultStrategyRegistry_EmptyID(t *testing.T) {
	registry := NewDefaultStrategyRegistry(testCollaborators(t))

	_, err := registry.CreateStrategy("knora_u", "", nil)
	assert.ErrorContains(t, err, "strategy ID cannot be empty")
}

func TestDefaultStrategyRegistry_RegisterFactory(t *testing.T) {
	registry := NewDefaultStrategyRegistry(testCollaborators(t))

	custom := func(id string, _ map[string]any) (ports.Strategy, error) {
		return nil, nil
	}

	require.NoError(t, registry.RegisterFactory("custom", custom))
	assert.Equal(t, []string{"custom", "knora_u"}, registry.ListStrategyTypes())

	assert.Error(t, registry.RegisterFactory("custom", custom), "duplicate registration")
	assert.Error(t, registry.RegisterFactory("", custom))
	assert.Error(t, registry.RegisterFactory("other", nil))
}
