package brackets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/robonova/competition-core/models"
)

var (
	// ErrInvalidFieldSize is returned for fields of fewer than two entrants.
	ErrInvalidFieldSize = errors.New("not enough entrants to generate a bracket (minimum 2)")
	// ErrSeedConflict is returned when seed numbers are not a contiguous
	// 1..n permutation.
	ErrSeedConflict = errors.New("seed numbers must form a contiguous 1..n permutation")
)

// Entrant is one seeded team entering a bracket.
type Entrant struct {
	TeamID int
	Seed   int
}

// BlueprintMatch is one node of a generated tournament graph, before it is
// persisted. Matches reference each other by UID; the service resolves
// UIDs to DB ids in a second pass.
type BlueprintMatch struct {
	UID          string
	BracketType  models.BracketType
	Round        int
	OrderInRound int

	Team1ID *int
	Team2ID *int

	// IsBye marks a node with a single occupant that advances without
	// playing. ByeTeamID is nil when the occupant is only known at run
	// time (a collapsed losers-bracket slot).
	IsBye     bool
	ByeTeamID *int

	// Forward pointers by UID.
	WinnerToUID  *string
	WinnerToSlot int
	LoserToUID   *string
	LoserToSlot  int
}

// GenerateParams carries everything a builder needs.
type GenerateParams struct {
	Tournament *models.Tournament
	Entrants   []Entrant
}

// Builder generates the match graph for one tournament format.
type Builder interface {
	Generate(ctx context.Context, params GenerateParams) ([]*BlueprintMatch, error)
	Name() string
}

// ForFormat returns the builder for a tournament format.
func ForFormat(format models.TournamentFormat) (Builder, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationBuilder(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationBuilder(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinBuilder(), nil
	case models.FormatSwiss:
		return NewSwissBuilder(), nil
	default:
		return nil, fmt.Errorf("unsupported tournament format %q", format)
	}
}

// validateSeeds checks the contiguous 1..n permutation invariant and
// returns the entrants ordered by seed.
func validateSeeds(entrants []Entrant) ([]Entrant, error) {
	n := len(entrants)
	if n < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrInvalidFieldSize, n)
	}
	ordered := make([]Entrant, n)
	copy(ordered, entrants)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seed < ordered[j].Seed })
	for i, e := range ordered {
		if e.Seed != i+1 {
			return nil, fmt.Errorf("%w: missing or duplicate seed %d", ErrSeedConflict, i+1)
		}
	}
	return ordered, nil
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// seedOrder returns bracket slot assignments for a field of the given
// power-of-two size, such that seed k meets seed size+1-k in round 1 and
// seeds 1 and 2 can only meet in the final. Classic halving expansion:
// [1 2] -> [1 4 2 3] -> [1 8 4 5 2 7 3 6] -> ...
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		grown := make([]int, 0, len(order)*2)
		mirror := len(order)*2 + 1
		for _, s := range order {
			grown = append(grown, s, mirror-s)
		}
		order = grown
	}
	return order
}
