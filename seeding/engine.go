package seeding

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/robonova/competition-core/models"
)

var (
	ErrNoEntrants         = errors.New("no entrants to seed")
	ErrDuplicateOverride  = errors.New("duplicate manual seed number")
	ErrOverrideOutOfRange = errors.New("manual seed number out of range")
)

// Input is everything known about one entrant before seeding: explicit
// prior placement, qualification score, head-to-head results against
// other entrants, and an optional manual override. Override always wins.
type Input struct {
	TeamID             int
	PriorPlacement     *int
	QualificationScore *float64
	ManualSeed         *int

	// BeatenTeamIDs holds head-to-head wins from the prior phase, used as
	// the second tie-break.
	BeatenTeamIDs []int
}

// Engine ranks entrants deterministically. The final tie-break is a
// pseudo-random draw seeded by the tournament id, so the same inputs
// always produce the same order.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Rank assigns seed numbers 1..n. Manual overrides are pinned first; the
// remaining entrants are ordered by prior placement (ascending), then
// qualification score (descending), with ties broken by head-to-head and
// finally the deterministic draw.
func (e *Engine) Rank(tournamentID int, inputs []Input) ([]models.Seeding, error) {
	n := len(inputs)
	if n == 0 {
		return nil, ErrNoEntrants
	}

	pinned := make(map[int]Input)
	rest := make([]Input, 0, n)
	for _, in := range inputs {
		if in.ManualSeed != nil {
			seed := *in.ManualSeed
			if seed < 1 || seed > n {
				return nil, fmt.Errorf("%w: team %d wants seed %d of %d", ErrOverrideOutOfRange, in.TeamID, seed, n)
			}
			if _, taken := pinned[seed]; taken {
				return nil, fmt.Errorf("%w: seed %d", ErrDuplicateOverride, seed)
			}
			pinned[seed] = in
			continue
		}
		rest = append(rest, in)
	}

	// Deterministic draw values: one shuffle of the unpinned entrants,
	// seeded by the tournament id, consumed as the last tie-break.
	draw := make(map[int]int, len(rest))
	shuffled := make([]Input, len(rest))
	copy(shuffled, rest)
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].TeamID < shuffled[j].TeamID })
	rng := rand.New(rand.NewSource(int64(tournamentID)))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	for pos, in := range shuffled {
		draw[in.TeamID] = pos
	}

	beat := func(a, b Input) bool {
		for _, id := range a.BeatenTeamIDs {
			if id == b.TeamID {
				return true
			}
		}
		return false
	}

	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		switch {
		case a.PriorPlacement != nil && b.PriorPlacement == nil:
			return true
		case a.PriorPlacement == nil && b.PriorPlacement != nil:
			return false
		case a.PriorPlacement != nil && b.PriorPlacement != nil && *a.PriorPlacement != *b.PriorPlacement:
			return *a.PriorPlacement < *b.PriorPlacement
		}
		as, bs := qualScore(a), qualScore(b)
		if as != bs {
			return as > bs
		}
		if beat(a, b) != beat(b, a) {
			return beat(a, b)
		}
		return draw[a.TeamID] < draw[b.TeamID]
	})

	// Fill seed numbers around the pinned overrides.
	out := make([]models.Seeding, 0, n)
	next := 0
	for seed := 1; seed <= n; seed++ {
		if in, ok := pinned[seed]; ok {
			out = append(out, models.Seeding{
				TournamentID: tournamentID,
				TeamID:       in.TeamID,
				SeedNumber:   seed,
				Source:       models.SeedSourceManual,
			})
			continue
		}
		in := rest[next]
		next++
		out = append(out, models.Seeding{
			TournamentID: tournamentID,
			TeamID:       in.TeamID,
			SeedNumber:   seed,
			Source:       sourceOf(in),
		})
	}
	return out, nil
}

func qualScore(in Input) float64 {
	if in.QualificationScore == nil {
		return 0
	}
	return *in.QualificationScore
}

func sourceOf(in Input) models.SeedSource {
	switch {
	case in.PriorPlacement != nil:
		return models.SeedSourcePriorPlacement
	case in.QualificationScore != nil:
		return models.SeedSourceQualification
	default:
		return models.SeedSourceDraw
	}
}
