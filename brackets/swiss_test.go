package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSwissRoundOnePairsHalves(t *testing.T) {
	b := NewSwissBuilder()
	matches, err := b.Generate(context.Background(), GenerateParams{
		Entrants: entrantsOf(1, 2, 3, 4, 5, 6, 7, 8),
	})
	require.NoError(t, err)
	require.Len(t, matches, 4)

	// Seed k meets seed k + n/2.
	for i, bm := range matches {
		require.Equal(t, i+1, *bm.Team1ID)
		require.Equal(t, i+5, *bm.Team2ID)
	}
}

func TestSwissRoundOneOddFieldByesBottomSeed(t *testing.T) {
	b := NewSwissBuilder()
	matches, err := b.Generate(context.Background(), GenerateParams{
		Entrants: entrantsOf(1, 2, 3, 4, 5),
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	last := matches[2]
	require.True(t, last.IsBye)
	require.Equal(t, 3, *last.ByeTeamID)
	require.Nil(t, last.Team2ID)
}

func TestPairRoundGroupsByPoints(t *testing.T) {
	b := NewSwissBuilder()
	entries := []SwissEntry{
		{TeamID: 1, Points: 3},
		{TeamID: 2, Points: 3},
		{TeamID: 3, Points: 0},
		{TeamID: 4, Points: 0},
	}
	matches, err := b.PairRound(2, entries, map[[2]int]bool{})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	require.Equal(t, PairKey(1, 2), PairKey(*matches[0].Team1ID, *matches[0].Team2ID))
	require.Equal(t, PairKey(3, 4), PairKey(*matches[1].Team1ID, *matches[1].Team2ID))
}

func TestPairRoundAvoidsRematches(t *testing.T) {
	b := NewSwissBuilder()
	entries := []SwissEntry{
		{TeamID: 1, Points: 3},
		{TeamID: 2, Points: 3},
		{TeamID: 3, Points: 0},
		{TeamID: 4, Points: 0},
	}
	played := map[[2]int]bool{
		PairKey(1, 2): true,
		PairKey(3, 4): true,
	}
	matches, err := b.PairRound(2, entries, played)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, bm := range matches {
		require.False(t, played[PairKey(*bm.Team1ID, *bm.Team2ID)], "rematch %d vs %d", *bm.Team1ID, *bm.Team2ID)
	}
}

func TestPairRoundAllowsRematchWhenForced(t *testing.T) {
	b := NewSwissBuilder()
	entries := []SwissEntry{
		{TeamID: 1, Points: 3},
		{TeamID: 2, Points: 0},
	}
	played := map[[2]int]bool{PairKey(1, 2): true}
	matches, err := b.PairRound(3, entries, played)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, PairKey(1, 2), PairKey(*matches[0].Team1ID, *matches[0].Team2ID))
}

func TestPairRoundByeGoesToLowestWithoutPriorBye(t *testing.T) {
	b := NewSwissBuilder()
	entries := []SwissEntry{
		{TeamID: 1, Points: 6},
		{TeamID: 2, Points: 3},
		{TeamID: 3, Points: 3},
		{TeamID: 4, Points: 0},
		{TeamID: 5, Points: 0, HadBye: true},
	}
	matches, err := b.PairRound(3, entries, map[[2]int]bool{})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	bye := matches[2]
	require.True(t, bye.IsBye)
	// Team 5 already sat out, so the bye falls to team 4.
	require.Equal(t, 4, *bye.ByeTeamID)
}

func TestPairRoundTooFewEntries(t *testing.T) {
	b := NewSwissBuilder()
	_, err := b.PairRound(2, []SwissEntry{{TeamID: 1}}, nil)
	require.ErrorIs(t, err, ErrInvalidFieldSize)
}
