package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
)

func TestCanTransitionTournament(t *testing.T) {
	tests := []struct {
		from, to models.TournamentStatus
		want     bool
	}{
		{models.TournamentSetup, models.TournamentSeeding, true},
		{models.TournamentSetup, models.TournamentActive, false},
		{models.TournamentSeeding, models.TournamentActive, true},
		{models.TournamentSeeding, models.TournamentSetup, true},
		{models.TournamentActive, models.TournamentCompleted, true},
		{models.TournamentActive, models.TournamentSeeding, false},
		{models.TournamentActive, models.TournamentSetup, false},
		{models.TournamentCompleted, models.TournamentActive, false},
		{models.TournamentCompleted, models.TournamentSetup, false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, canTransitionTournament(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestBooksReusePerTournament(t *testing.T) {
	books := NewBooks()
	a := &models.Tournament{ID: 1, AggregationMethod: models.AggregateAverage, ConflictThresholdPercent: 20}
	b := &models.Tournament{ID: 2, AggregationMethod: models.AggregateMedian, ConflictThresholdPercent: 10}

	require.Same(t, books.For(a), books.For(a))
	require.NotSame(t, books.For(a), books.For(b))
}
