package brackets

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/robonova/competition-core/models"
)

// SingleEliminationBuilder pads the field to the next power of two with
// byes, placed so that byes go to the top seeds and, absent upsets, seeds
// 1 and 2 meet in the final.
type SingleEliminationBuilder struct {
	// ThirdPlace adds a consolation match fed by the semifinal losers.
	ThirdPlace bool
}

func NewSingleEliminationBuilder() *SingleEliminationBuilder {
	return &SingleEliminationBuilder{}
}

func (b *SingleEliminationBuilder) Name() string {
	return "SingleElimination"
}

func (b *SingleEliminationBuilder) Generate(ctx context.Context, params GenerateParams) ([]*BlueprintMatch, error) {
	ordered, err := validateSeeds(params.Entrants)
	if err != nil {
		return nil, err
	}
	n := len(ordered)
	size := nextPowerOfTwo(n)
	rounds := int(math.Log2(float64(size)))
	order := seedOrder(size)

	teamAt := func(slot int) *int {
		seed := order[slot]
		if seed > n {
			return nil // padded slot, becomes a bye
		}
		id := ordered[seed-1].TeamID
		return &id
	}

	matches := make([]*BlueprintMatch, 0, size-1)
	byUID := make(map[string]*BlueprintMatch, size-1)

	// Round 1 from slot pairs, then placeholder matches upward. Bye
	// occupants are pre-filled into their round-2 slot.
	prevRound := make([]*BlueprintMatch, 0, size/2)
	for i := 0; i < size/2; i++ {
		bm := &BlueprintMatch{
			UID:          fmt.Sprintf("R1M%d", i+1),
			BracketType:  models.BracketWinners,
			Round:        1,
			OrderInRound: i + 1,
			Team1ID:      teamAt(2 * i),
			Team2ID:      teamAt(2*i + 1),
		}
		if bm.Team1ID == nil || bm.Team2ID == nil {
			// Two byes cannot pair: byes sit opposite the top seeds.
			bm.IsBye = true
			if bm.Team1ID != nil {
				bm.ByeTeamID = bm.Team1ID
			} else {
				bm.ByeTeamID = bm.Team2ID
			}
		}
		matches = append(matches, bm)
		byUID[bm.UID] = bm
		prevRound = append(prevRound, bm)
	}

	for r := 2; r <= rounds; r++ {
		current := make([]*BlueprintMatch, 0, len(prevRound)/2)
		for i := 0; i < len(prevRound)/2; i++ {
			bm := &BlueprintMatch{
				UID:          fmt.Sprintf("R%dM%d", r, i+1),
				BracketType:  models.BracketWinners,
				Round:        r,
				OrderInRound: i + 1,
			}
			for s, src := range []*BlueprintMatch{prevRound[2*i], prevRound[2*i+1]} {
				src.WinnerToUID = &bm.UID
				src.WinnerToSlot = s + 1
				if src.IsBye {
					// Bye occupants advance immediately.
					if s == 0 {
						bm.Team1ID = src.ByeTeamID
					} else {
						bm.Team2ID = src.ByeTeamID
					}
				}
			}
			matches = append(matches, bm)
			byUID[bm.UID] = bm
			current = append(current, bm)
		}
		prevRound = current
	}

	if b.ThirdPlace && rounds >= 2 {
		cons := &BlueprintMatch{
			UID:          "CONS",
			BracketType:  models.BracketConsolation,
			Round:        rounds,
			OrderInRound: 2,
		}
		semis := make([]*BlueprintMatch, 0, 2)
		for _, bm := range matches {
			if bm.BracketType == models.BracketWinners && bm.Round == rounds-1 {
				semis = append(semis, bm)
			}
		}
		sort.Slice(semis, func(i, j int) bool { return semis[i].OrderInRound < semis[j].OrderInRound })
		for s, src := range semis {
			if src.IsBye {
				continue // a bye semifinal produces no loser
			}
			src.LoserToUID = &cons.UID
			src.LoserToSlot = s + 1
		}
		matches = append(matches, cons)
	}

	return matches, nil
}
