package brackets

import (
	"context"
	"fmt"
	"math"

	"github.com/robonova/competition-core/models"
)

// DoubleEliminationBuilder builds a winners bracket identical to single
// elimination plus a losers bracket fed by the conventional drop mapping:
// losers of winners round 1 pair up in losers round 1; losers of winners
// round r+1 drop into losers round 2r, with the drop order reversed on
// alternate rounds to delay rematches. A true final allows one bracket
// reset.
type DoubleEliminationBuilder struct{}

func NewDoubleEliminationBuilder() *DoubleEliminationBuilder {
	return &DoubleEliminationBuilder{}
}

func (b *DoubleEliminationBuilder) Name() string {
	return "DoubleElimination"
}

// feed describes where a losers-bracket slot is filled from.
type feed struct {
	srcUID string
	loser  bool // loser-of srcUID, otherwise winner-of
}

func (b *DoubleEliminationBuilder) Generate(ctx context.Context, params GenerateParams) ([]*BlueprintMatch, error) {
	ordered, err := validateSeeds(params.Entrants)
	if err != nil {
		return nil, err
	}
	n := len(ordered)
	size := nextPowerOfTwo(n)
	rounds := int(math.Log2(float64(size)))
	order := seedOrder(size)

	byUID := make(map[string]*BlueprintMatch)
	// loserDrops[uid] is false for byes: nobody drops out of a bye.
	loserDrops := make(map[string]bool)
	voided := make(map[string]bool)

	teamAt := func(slot int) *int {
		seed := order[slot]
		if seed > n {
			return nil
		}
		id := ordered[seed-1].TeamID
		return &id
	}

	// Winners bracket, single-elimination shape.
	winners := make([][]*BlueprintMatch, rounds+1)
	for i := 0; i < size/2; i++ {
		bm := &BlueprintMatch{
			UID:          fmt.Sprintf("WR1M%d", i+1),
			BracketType:  models.BracketWinners,
			Round:        1,
			OrderInRound: i + 1,
			Team1ID:      teamAt(2 * i),
			Team2ID:      teamAt(2*i + 1),
		}
		if bm.Team1ID == nil || bm.Team2ID == nil {
			bm.IsBye = true
			if bm.Team1ID != nil {
				bm.ByeTeamID = bm.Team1ID
			} else {
				bm.ByeTeamID = bm.Team2ID
			}
		}
		loserDrops[bm.UID] = !bm.IsBye
		byUID[bm.UID] = bm
		winners[1] = append(winners[1], bm)
	}
	for r := 2; r <= rounds; r++ {
		prev := winners[r-1]
		for i := 0; i < len(prev)/2; i++ {
			bm := &BlueprintMatch{
				UID:          fmt.Sprintf("WR%dM%d", r, i+1),
				BracketType:  models.BracketWinners,
				Round:        r,
				OrderInRound: i + 1,
			}
			for s, src := range []*BlueprintMatch{prev[2*i], prev[2*i+1]} {
				src.WinnerToUID = &bm.UID
				src.WinnerToSlot = s + 1
				if src.IsBye {
					if s == 0 {
						bm.Team1ID = src.ByeTeamID
					} else {
						bm.Team2ID = src.ByeTeamID
					}
				}
			}
			loserDrops[bm.UID] = true
			byUID[bm.UID] = bm
			winners[r] = append(winners[r], bm)
		}
	}

	grandFinal := &BlueprintMatch{
		UID:         "GF",
		BracketType: models.BracketGrandFinal,
		Round:       1, OrderInRound: 1,
	}
	reset := &BlueprintMatch{
		UID:         "GFR",
		BracketType: models.BracketGrandFinal,
		Round:       2, OrderInRound: 1,
	}
	wFinal := winners[rounds][0]
	wFinal.WinnerToUID = &grandFinal.UID
	wFinal.WinnerToSlot = 1

	out := make([]*BlueprintMatch, 0, 2*size)
	for r := 1; r <= rounds; r++ {
		out = append(out, winners[r]...)
	}

	// Losers bracket: 2(rounds-1) rounds. Minor rounds halve the losers
	// bracket, major rounds absorb a winners-bracket drop. Slots fed by a
	// bye (which produces no loser) are collapsed: one dead slot turns
	// the match into a pass-through bye, two dead slots void it.
	if rounds >= 2 {
		losers := make([][]*BlueprintMatch, 2*rounds-1)
		feedsOf := make(map[string][2]feed)

		for k := 1; k <= rounds-1; k++ {
			count := size / (1 << uint(k+1))

			minorRound := 2*k - 1
			for i := 0; i < count; i++ {
				bm := &BlueprintMatch{
					UID:         fmt.Sprintf("LR%dM%d", minorRound, i+1),
					BracketType: models.BracketLosers,
					Round:       minorRound, OrderInRound: i + 1,
				}
				var f [2]feed
				if k == 1 {
					f[0] = feed{srcUID: winners[1][2*i].UID, loser: true}
					f[1] = feed{srcUID: winners[1][2*i+1].UID, loser: true}
				} else {
					f[0] = feed{srcUID: losers[2*k-2][2*i].UID}
					f[1] = feed{srcUID: losers[2*k-2][2*i+1].UID}
				}
				feedsOf[bm.UID] = f
				byUID[bm.UID] = bm
				losers[minorRound] = append(losers[minorRound], bm)
			}

			majorRound := 2 * k
			for i := 0; i < count; i++ {
				bm := &BlueprintMatch{
					UID:         fmt.Sprintf("LR%dM%d", majorRound, i+1),
					BracketType: models.BracketLosers,
					Round:       majorRound, OrderInRound: i + 1,
				}
				dropIdx := i
				if k%2 == 1 {
					dropIdx = count - 1 - i
				}
				feedsOf[bm.UID] = [2]feed{
					{srcUID: losers[minorRound][i].UID},
					{srcUID: winners[k+1][dropIdx].UID, loser: true},
				}
				byUID[bm.UID] = bm
				losers[majorRound] = append(losers[majorRound], bm)
			}
		}

		// Collapse pass, ascending rounds so feeds are already settled.
		for r := 1; r <= 2*rounds-2; r++ {
			for _, bm := range losers[r] {
				f := feedsOf[bm.UID]
				live := make([]feed, 0, 2)
				for _, fd := range f {
					if fd.loser {
						if loserDrops[fd.srcUID] {
							live = append(live, fd)
						}
					} else if !voided[fd.srcUID] {
						live = append(live, fd)
					}
				}
				switch len(live) {
				case 0:
					voided[bm.UID] = true
					loserDrops[bm.UID] = false
					continue
				case 1:
					bm.IsBye = true
					loserDrops[bm.UID] = false
				default:
					loserDrops[bm.UID] = true
				}
				for s, fd := range live {
					src := byUID[fd.srcUID]
					if fd.loser {
						src.LoserToUID = &bm.UID
						src.LoserToSlot = s + 1
					} else {
						src.WinnerToUID = &bm.UID
						src.WinnerToSlot = s + 1
					}
				}
			}
		}

		lFinal := losers[2*rounds-2][0]
		if voided[lFinal.UID] {
			return nil, fmt.Errorf("losers bracket collapsed entirely for field of %d", n)
		}
		lFinal.WinnerToUID = &grandFinal.UID
		lFinal.WinnerToSlot = 2

		for r := 1; r <= 2*rounds-2; r++ {
			for _, bm := range losers[r] {
				if !voided[bm.UID] {
					out = append(out, bm)
				}
			}
		}
	} else {
		// Two entrants: the winners final loser goes straight to the true
		// final's second slot.
		wFinal.LoserToUID = &grandFinal.UID
		wFinal.LoserToSlot = 2
	}

	// The reset only runs when the losers-bracket entrant takes the grand
	// final; the match service voids it otherwise.
	grandFinal.WinnerToUID = &reset.UID
	grandFinal.WinnerToSlot = 1
	grandFinal.LoserToUID = &reset.UID
	grandFinal.LoserToSlot = 2

	out = append(out, grandFinal, reset)
	return out, nil
}
