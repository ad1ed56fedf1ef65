// Package strategies provides the dynamic selection strategies that implement
// the ports.Strategy interface for the dynsel engine.
package strategies

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/dynsel/dynsel/internal/domain"
)

// Common errors returned by selection strategies.
// These errors provide consistent error handling across all strategy
// implementations.
var (
	// ErrEmptyStrategyName is returned when attempting to create a strategy
	// with an empty name.
	ErrEmptyStrategyName = errors.New("strategy name cannot be empty")

	// ErrNilRegionProvider is returned when a strategy is created without a
	// region-of-competence provider.
	ErrNilRegionProvider = errors.New("region provider cannot be nil")

	// ErrNilCorrectnessTable is returned when a strategy is created without a
	// fitted correctness table.
	ErrNilCorrectnessTable = errors.New("correctness table cannot be nil")

	// ErrWeightedVoting is returned when distance-weighted voting is
	// requested; only unweighted voting is implemented.
	ErrWeightedVoting = errors.New("distance-weighted voting is not implemented")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// PluralityVote tallies an ordered vote sequence and returns the label with
// the highest count. Ties are broken by the earliest first occurrence in the
// sequence; because strategies append votes in pool order, a tie resolves to
// the earliest-voting classifier's label.
func PluralityVote(votes []domain.Label) (domain.Label, error) {
	if len(votes) == 0 {
		return "", domain.ErrNoVotes
	}

	counts := make(map[domain.Label]int, len(votes))
	// firstSeen preserves encounter order so equal tallies resolve
	// deterministically.
	firstSeen := make([]domain.Label, 0, len(votes))
	for _, v := range votes {
		if _, seen := counts[v]; !seen {
			firstSeen = append(firstSeen, v)
		}
		counts[v]++
	}

	winner := firstSeen[0]
	for _, label := range firstSeen[1:] {
		if counts[label] > counts[winner] {
			winner = label
		}
	}
	return winner, nil
}

func allZero(weights []int) bool {
	for _, w := range weights {
		if w != 0 {
			return false
		}
	}
	return true
}
