package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundRobinEvenField(t *testing.T) {
	b := NewRoundRobinBuilder()
	matches, err := b.Generate(context.Background(), GenerateParams{
		Entrants: entrantsOf(1, 2, 3, 4, 5, 6),
	})
	require.NoError(t, err)
	// n(n-1)/2 pairings over n-1 rounds.
	require.Len(t, matches, 15)

	pairings := make(map[[2]int]int)
	byRound := make(map[int][]*BlueprintMatch)
	for _, bm := range matches {
		require.False(t, bm.IsBye)
		require.NotNil(t, bm.Team1ID)
		require.NotNil(t, bm.Team2ID)
		pairings[PairKey(*bm.Team1ID, *bm.Team2ID)]++
		byRound[bm.Round] = append(byRound[bm.Round], bm)
	}

	// Every pair meets exactly once.
	require.Len(t, pairings, 15)
	for pair, count := range pairings {
		require.Equal(t, 1, count, "pair %v", pair)
	}

	// No team plays twice in the same round.
	require.Len(t, byRound, 5)
	for round, rm := range byRound {
		require.Len(t, rm, 3, "round %d", round)
		seen := make(map[int]bool)
		for _, bm := range rm {
			require.False(t, seen[*bm.Team1ID], "round %d team %d", round, *bm.Team1ID)
			require.False(t, seen[*bm.Team2ID], "round %d team %d", round, *bm.Team2ID)
			seen[*bm.Team1ID] = true
			seen[*bm.Team2ID] = true
		}
	}
}

func TestRoundRobinOddFieldRotatesBye(t *testing.T) {
	b := NewRoundRobinBuilder()
	matches, err := b.Generate(context.Background(), GenerateParams{
		Entrants: entrantsOf(1, 2, 3, 4, 5),
	})
	require.NoError(t, err)
	require.Len(t, matches, 10)

	// With 5 teams there are 5 rounds of 2 matches; the team missing from
	// a round sits out, and everyone sits out exactly once.
	appearances := make(map[int]int)
	perRound := make(map[int]map[int]bool)
	for _, bm := range matches {
		appearances[*bm.Team1ID]++
		appearances[*bm.Team2ID]++
		if perRound[bm.Round] == nil {
			perRound[bm.Round] = make(map[int]bool)
		}
		perRound[bm.Round][*bm.Team1ID] = true
		perRound[bm.Round][*bm.Team2ID] = true
	}
	require.Len(t, perRound, 5)
	for team := 1; team <= 5; team++ {
		require.Equal(t, 4, appearances[team], "team %d", team)
	}
	for round, teams := range perRound {
		require.Len(t, teams, 4, "round %d", round)
	}
}
