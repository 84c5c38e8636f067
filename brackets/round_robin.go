package brackets

import (
	"context"
	"fmt"

	"github.com/robonova/competition-core/models"
)

// RoundRobinBuilder generates all-pairs pairings via the circle method:
// with n teams everyone plays exactly n-1 matches spread over rounds of
// ceil(n/2) matches, and no two matches in a round share a team. For odd
// n a dummy entry is rotated in and its pairings are skipped, which is
// the per-round bye.
type RoundRobinBuilder struct{}

func NewRoundRobinBuilder() *RoundRobinBuilder {
	return &RoundRobinBuilder{}
}

func (b *RoundRobinBuilder) Name() string {
	return "RoundRobin"
}

func (b *RoundRobinBuilder) Generate(ctx context.Context, params GenerateParams) ([]*BlueprintMatch, error) {
	ordered, err := validateSeeds(params.Entrants)
	if err != nil {
		return nil, err
	}

	ring := make([]int, 0, len(ordered)+1)
	for _, e := range ordered {
		ring = append(ring, e.TeamID)
	}
	if len(ring)%2 != 0 {
		ring = append(ring, 0) // dummy opponent, pairing against it is a bye
	}
	n := len(ring)
	roundCount := n - 1
	half := n / 2

	matches := make([]*BlueprintMatch, 0, roundCount*half)
	for round := 1; round <= roundCount; round++ {
		order := 0
		for i := 0; i < half; i++ {
			t1, t2 := ring[i], ring[n-1-i]
			if t1 == 0 || t2 == 0 {
				continue
			}
			order++
			id1, id2 := t1, t2
			matches = append(matches, &BlueprintMatch{
				UID:          fmt.Sprintf("RR%dM%d", round, order),
				BracketType:  models.BracketNone,
				Round:        round,
				OrderInRound: order,
				Team1ID:      &id1,
				Team2ID:      &id2,
			})
		}
		// Rotate, keeping the first position fixed.
		ring = append(ring[:1], append([]int{ring[n-1]}, ring[1:n-1]...)...)
	}

	return matches, nil
}
