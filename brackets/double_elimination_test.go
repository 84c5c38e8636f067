package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
)

func TestDoubleEliminationFullField(t *testing.T) {
	b := NewDoubleEliminationBuilder()
	matches, err := b.Generate(context.Background(), GenerateParams{
		Entrants: entrantsOf(1, 2, 3, 4, 5, 6, 7, 8),
	})
	require.NoError(t, err)
	// 7 winners + 6 losers + grand final + reset.
	require.Len(t, matches, 16)

	byType := make(map[models.BracketType]int)
	for _, bm := range matches {
		byType[bm.BracketType]++
		require.False(t, bm.IsBye, bm.UID)
	}
	require.Equal(t, 7, byType[models.BracketWinners])
	require.Equal(t, 6, byType[models.BracketLosers])
	require.Equal(t, 2, byType[models.BracketGrandFinal])

	byUID := indexByUID(matches)

	// Winners final feeds slot 1 of the grand final, losers final slot 2.
	wFinal := byUID["WR3M1"]
	require.Equal(t, "GF", *wFinal.WinnerToUID)
	require.Equal(t, 1, wFinal.WinnerToSlot)
	lFinal := byUID["LR4M1"]
	require.Equal(t, "GF", *lFinal.WinnerToUID)
	require.Equal(t, 2, lFinal.WinnerToSlot)

	// The reset is wired from both grand final outcomes; the match
	// service voids it when the winners-side entrant wins.
	gf := byUID["GF"]
	require.Equal(t, "GFR", *gf.WinnerToUID)
	require.Equal(t, 1, gf.WinnerToSlot)
	require.Equal(t, "GFR", *gf.LoserToUID)
	require.Equal(t, 2, gf.LoserToSlot)

	// Round 1 losers pair up in losers round 1.
	require.Equal(t, "LR1M1", *byUID["WR1M1"].LoserToUID)
	require.Equal(t, "LR1M1", *byUID["WR1M2"].LoserToUID)

	// Winners round 2 drops are reversed to delay rematches.
	require.Equal(t, "LR2M1", *byUID["WR2M2"].LoserToUID)
	require.Equal(t, "LR2M2", *byUID["WR2M1"].LoserToUID)

	// Winners final loser drops into the losers final.
	require.Equal(t, "LR4M1", *wFinal.LoserToUID)
	require.Equal(t, 2, wFinal.LoserToSlot)
}

func TestDoubleEliminationCollapsesByeFedSlots(t *testing.T) {
	b := NewDoubleEliminationBuilder()
	matches, err := b.Generate(context.Background(), GenerateParams{
		Entrants: entrantsOf(1, 2, 3, 4, 5, 6),
	})
	require.NoError(t, err)

	byUID := indexByUID(matches)

	// Top seeds get the winners round 1 byes.
	require.True(t, byUID["WR1M1"].IsBye)
	require.Equal(t, 1, *byUID["WR1M1"].ByeTeamID)
	require.True(t, byUID["WR1M3"].IsBye)
	require.Equal(t, 2, *byUID["WR1M3"].ByeTeamID)

	// A bye produces no loser, so each losers round 1 match has a single
	// live feed and collapses to a pass-through whose occupant is only
	// known at run time.
	for _, uid := range []string{"LR1M1", "LR1M2"} {
		bm := byUID[uid]
		require.NotNil(t, bm, uid)
		require.True(t, bm.IsBye, uid)
		require.Nil(t, bm.ByeTeamID, uid)
	}

	// The surviving loser drops into the pass-through, which is wired
	// onward into losers round 2.
	require.Equal(t, "LR1M1", *byUID["WR1M2"].LoserToUID)
	require.Equal(t, "LR1M2", *byUID["WR1M4"].LoserToUID)
	require.Equal(t, "LR2M1", *byUID["LR1M1"].WinnerToUID)
	require.Equal(t, "LR2M2", *byUID["LR1M2"].WinnerToUID)
}

func TestDoubleEliminationTwoEntrants(t *testing.T) {
	b := NewDoubleEliminationBuilder()
	matches, err := b.Generate(context.Background(), GenerateParams{
		Entrants: entrantsOf(10, 20),
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	byUID := indexByUID(matches)
	only := byUID["WR1M1"]
	require.Equal(t, "GF", *only.WinnerToUID)
	require.Equal(t, 1, only.WinnerToSlot)
	// With no losers bracket the first loss goes straight to the true
	// final for the allowed second chance.
	require.Equal(t, "GF", *only.LoserToUID)
	require.Equal(t, 2, only.LoserToSlot)
}
