package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/robonova/competition-core/models"
)

// SwissBuilder pairs round 1 top half against bottom half by seed.
// Subsequent rounds are paired from live standings via PairRound as
// earlier rounds complete; the full schedule cannot be generated up
// front.
type SwissBuilder struct{}

func NewSwissBuilder() *SwissBuilder {
	return &SwissBuilder{}
}

func (b *SwissBuilder) Name() string {
	return "Swiss"
}

func (b *SwissBuilder) Generate(ctx context.Context, params GenerateParams) ([]*BlueprintMatch, error) {
	ordered, err := validateSeeds(params.Entrants)
	if err != nil {
		return nil, err
	}
	n := len(ordered)
	half := (n + 1) / 2

	matches := make([]*BlueprintMatch, 0, half)
	order := 0
	for i := 0; i < half; i++ {
		j := i + half
		order++
		uid := fmt.Sprintf("SW1M%d", order)
		bm := &BlueprintMatch{
			UID:          uid,
			BracketType:  models.BracketNone,
			Round:        1,
			OrderInRound: order,
		}
		id1 := ordered[i].TeamID
		bm.Team1ID = &id1
		if j < n {
			id2 := ordered[j].TeamID
			bm.Team2ID = &id2
		} else {
			bm.IsBye = true
			bm.ByeTeamID = &id1
		}
		matches = append(matches, bm)
	}
	return matches, nil
}

// SwissEntry is a team's running score used for pairing.
type SwissEntry struct {
	TeamID int
	Points int
	HadBye bool
}

// PairKey normalizes a pairing for rematch lookup.
func PairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// PairRound pairs the next swiss round: teams sorted by points, each
// paired with the nearest lower entry it has not already played. With an
// odd field the lowest entry without a previous bye sits out.
func (b *SwissBuilder) PairRound(round int, entries []SwissEntry, played map[[2]int]bool) ([]*BlueprintMatch, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrInvalidFieldSize, len(entries))
	}
	pool := make([]SwissEntry, len(entries))
	copy(pool, entries)
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Points > pool[j].Points })

	var byeTeam *int
	if len(pool)%2 != 0 {
		for i := len(pool) - 1; i >= 0; i-- {
			if !pool[i].HadBye {
				id := pool[i].TeamID
				byeTeam = &id
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
		if byeTeam == nil {
			// Everyone already had a bye; the very last entry sits out again.
			id := pool[len(pool)-1].TeamID
			byeTeam = &id
			pool = pool[:len(pool)-1]
		}
	}

	matches := make([]*BlueprintMatch, 0, len(pool)/2+1)
	used := make(map[int]bool, len(pool))
	order := 0
	for i := 0; i < len(pool); i++ {
		if used[pool[i].TeamID] {
			continue
		}
		opponent := -1
		fallback := -1
		for j := i + 1; j < len(pool); j++ {
			if used[pool[j].TeamID] {
				continue
			}
			if fallback == -1 {
				fallback = j // rematch, used only if nothing fresh remains
			}
			if !played[PairKey(pool[i].TeamID, pool[j].TeamID)] {
				opponent = j
				break
			}
		}
		if opponent == -1 {
			opponent = fallback
		}
		if opponent == -1 {
			break
		}
		used[pool[i].TeamID] = true
		used[pool[opponent].TeamID] = true
		order++
		id1, id2 := pool[i].TeamID, pool[opponent].TeamID
		matches = append(matches, &BlueprintMatch{
			UID:          fmt.Sprintf("SW%dM%d", round, order),
			BracketType:  models.BracketNone,
			Round:        round,
			OrderInRound: order,
			Team1ID:      &id1,
			Team2ID:      &id2,
		})
	}

	if byeTeam != nil {
		order++
		matches = append(matches, &BlueprintMatch{
			UID:          fmt.Sprintf("SW%dM%d", round, order),
			BracketType:  models.BracketNone,
			Round:        round,
			OrderInRound: order,
			Team1ID:      byeTeam,
			IsBye:        true,
			ByeTeamID:    byeTeam,
		})
	}
	return matches, nil
}
