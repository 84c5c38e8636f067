package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
	"github.com/robonova/competition-core/scheduler"
)

type stubMatchRepo struct {
	byID map[int]*models.Match
}

func (r *stubMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	m.ID = len(r.byID) + 1
	r.byID[m.ID] = m
	return nil
}

func (r *stubMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (r *stubMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, round *int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.byID {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *stubMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	if _, ok := r.byID[m.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *stubMatchRepo) UpdateLinks(_ context.Context, _ repositories.SQLExecutor, _ int, _, _, _, _ *int) error {
	return nil
}

type stubScheduleRepo struct {
	assignments []*models.ScheduledMatch
	venues      []*models.Venue
}

func (r *stubScheduleRepo) Create(_ context.Context, _ repositories.SQLExecutor, sm *models.ScheduledMatch) error {
	sm.ID = len(r.assignments) + 1
	r.assignments = append(r.assignments, sm)
	return nil
}

func (r *stubScheduleRepo) GetByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) (*models.ScheduledMatch, error) {
	for _, sm := range r.assignments {
		if sm.MatchID == matchID {
			return sm, nil
		}
	}
	return nil, repositories.ErrScheduleNotFound
}

func (r *stubScheduleRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.ScheduledMatch, error) {
	var out []*models.ScheduledMatch
	for _, sm := range r.assignments {
		if sm.TournamentID == tournamentID {
			out = append(out, sm)
		}
	}
	return out, nil
}

func (r *stubScheduleRepo) Confirm(_ context.Context, _ repositories.SQLExecutor, id int) error {
	for _, sm := range r.assignments {
		if sm.ID == id {
			sm.Confirmed = true
			return nil
		}
	}
	return repositories.ErrScheduleNotFound
}

func (r *stubScheduleRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	for i, sm := range r.assignments {
		if sm.ID == id {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return repositories.ErrScheduleNotFound
}

func (r *stubScheduleRepo) CreateVenue(_ context.Context, _ repositories.SQLExecutor, v *models.Venue) error {
	v.ID = len(r.venues) + 1
	r.venues = append(r.venues, v)
	return nil
}

func (r *stubScheduleRepo) ListVenues(_ context.Context, _ repositories.SQLExecutor) ([]*models.Venue, error) {
	return r.venues, nil
}

func TestScheduleRejectsSecondAssignment(t *testing.T) {
	matches := &stubMatchRepo{byID: map[int]*models.Match{
		10: {ID: 10, TournamentID: 1, Status: models.MatchReady},
	}}
	schedules := &stubScheduleRepo{venues: []*models.Venue{{ID: 1, Name: "Main Hall", Tables: 4}}}
	svc := NewScheduleService(schedules, matches, nil, scheduler.New(0), discardLogger())
	ctx := context.Background()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slot := models.TimeSlot{Start: start, End: start.Add(30 * time.Minute)}

	conflicts, err := svc.Schedule(ctx, &models.ScheduledMatch{
		MatchID: 10, VenueID: 1, TableNumber: 1, Slot: slot,
	})
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Len(t, schedules.assignments, 1)

	// The match is already assigned; a second call must go through
	// Reschedule instead of stacking a duplicate the validator skips.
	_, err = svc.Schedule(ctx, &models.ScheduledMatch{
		MatchID: 10, VenueID: 1, TableNumber: 2, Slot: slot,
	})
	require.ErrorIs(t, err, ErrMatchAlreadyScheduled)
	require.Len(t, schedules.assignments, 1)
}
