package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
)

type fakeAvailability map[int]bool

func (f fakeAvailability) Available(judgeID int, _ models.TimeSlot) bool {
	available, known := f[judgeID]
	return known && available
}

func slotAt(start string, minutes int) models.TimeSlot {
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	return models.TimeSlot{Start: t, End: t.Add(time.Duration(minutes) * time.Minute)}
}

func teamRef(id int) *int { return &id }

func testMatches() map[int]*models.Match {
	return map[int]*models.Match{
		1: {ID: 1, Team1ID: teamRef(10), Team2ID: teamRef(20)},
		2: {ID: 2, Team1ID: teamRef(10), Team2ID: teamRef(30)},
		3: {ID: 3, Team1ID: teamRef(40), Team2ID: teamRef(50)},
	}
}

func testVenues() map[int]*models.Venue {
	return map[int]*models.Venue{
		1: {ID: 1, Name: "Main Hall", Tables: 4},
	}
}

func conflictTypes(conflicts []Conflict) []ConflictType {
	out := make([]ConflictType, len(conflicts))
	for i, c := range conflicts {
		out[i] = c.Type
	}
	return out
}

func TestValidateCleanAssignment(t *testing.T) {
	s := New(15 * time.Minute)
	conflicts := s.Validate(
		models.ScheduledMatch{MatchID: 1, VenueID: 1, TableNumber: 1, Slot: slotAt("2026-09-01T10:00:00Z", 30)},
		nil, testMatches(), nil, testVenues(),
	)
	require.Empty(t, conflicts)
}

func TestValidateTableCapacity(t *testing.T) {
	s := New(0)
	conflicts := s.Validate(
		models.ScheduledMatch{MatchID: 1, VenueID: 1, TableNumber: 5, Slot: slotAt("2026-09-01T10:00:00Z", 30)},
		nil, testMatches(), nil, testVenues(),
	)
	require.Len(t, conflicts, 1)
	require.Equal(t, ConflictTableCapacity, conflicts[0].Type)
	require.Equal(t, SeverityCritical, conflicts[0].Severity)
	require.True(t, HasCritical(conflicts))
}

func TestValidateVenueDoubleBooked(t *testing.T) {
	s := New(0)
	existing := []models.ScheduledMatch{
		{MatchID: 3, VenueID: 1, TableNumber: 2, Slot: slotAt("2026-09-01T10:00:00Z", 30), Confirmed: true},
	}
	conflicts := s.Validate(
		models.ScheduledMatch{MatchID: 1, VenueID: 1, TableNumber: 2, Slot: slotAt("2026-09-01T10:15:00Z", 30)},
		existing, testMatches(), nil, testVenues(),
	)
	require.Contains(t, conflictTypes(conflicts), ConflictVenueDoubleBooked)
	require.True(t, HasCritical(conflicts))
}

func TestValidateTeamDoubleBooked(t *testing.T) {
	s := New(0)
	// Matches 1 and 2 share team 10; overlapping slots on different
	// tables still collide.
	existing := []models.ScheduledMatch{
		{MatchID: 2, VenueID: 1, TableNumber: 2, Slot: slotAt("2026-09-01T10:00:00Z", 30), Confirmed: true},
	}
	conflicts := s.Validate(
		models.ScheduledMatch{MatchID: 1, VenueID: 1, TableNumber: 1, Slot: slotAt("2026-09-01T10:20:00Z", 30)},
		existing, testMatches(), nil, testVenues(),
	)
	require.Len(t, conflicts, 1)
	require.Equal(t, ConflictTeamDoubleBooked, conflicts[0].Type)
	require.Equal(t, SeverityCritical, conflicts[0].Severity)
}

func TestValidateInsufficientBufferWarns(t *testing.T) {
	s := New(15 * time.Minute)
	existing := []models.ScheduledMatch{
		{MatchID: 2, VenueID: 1, TableNumber: 2, Slot: slotAt("2026-09-01T10:00:00Z", 30), Confirmed: true},
	}
	// Back to back with only 10 minutes of rest for team 10.
	conflicts := s.Validate(
		models.ScheduledMatch{MatchID: 1, VenueID: 1, TableNumber: 1, Slot: slotAt("2026-09-01T10:40:00Z", 30)},
		existing, testMatches(), nil, testVenues(),
	)
	require.Len(t, conflicts, 1)
	require.Equal(t, ConflictInsufficientBuffer, conflicts[0].Type)
	require.Equal(t, SeverityWarning, conflicts[0].Severity)
	// Warnings never block.
	require.False(t, HasCritical(conflicts))
}

func TestValidateIgnoresUnconfirmed(t *testing.T) {
	s := New(0)
	existing := []models.ScheduledMatch{
		{MatchID: 3, VenueID: 1, TableNumber: 2, Slot: slotAt("2026-09-01T10:00:00Z", 30), Confirmed: false},
	}
	conflicts := s.Validate(
		models.ScheduledMatch{MatchID: 1, VenueID: 1, TableNumber: 2, Slot: slotAt("2026-09-01T10:00:00Z", 30)},
		existing, testMatches(), nil, testVenues(),
	)
	require.Empty(t, conflicts)
}

func TestValidateJudgeUnavailable(t *testing.T) {
	s := New(0)
	availability := fakeAvailability{7: true, 8: false}
	conflicts := s.Validate(
		models.ScheduledMatch{
			MatchID: 1, VenueID: 1, TableNumber: 1,
			Slot:       slotAt("2026-09-01T10:00:00Z", 30),
			JudgePanel: []int{7, 8},
		},
		nil, testMatches(), availability, testVenues(),
	)
	require.Len(t, conflicts, 1)
	require.Equal(t, ConflictJudgeUnavailable, conflicts[0].Type)
	require.Equal(t, SeverityError, conflicts[0].Severity)
	require.Equal(t, "judge 8 is not available for the requested slot", conflicts[0].Detail)
	// Errors queue for an operator decision but do not hard-block.
	require.False(t, HasCritical(conflicts))
}

func TestGapBetween(t *testing.T) {
	a := slotAt("2026-09-01T10:00:00Z", 30)
	b := slotAt("2026-09-01T11:00:00Z", 30)
	require.Equal(t, 30*time.Minute, gapBetween(b, a))
	require.Equal(t, 30*time.Minute, gapBetween(a, b))
	require.Equal(t, time.Duration(0), gapBetween(a, a))
}
