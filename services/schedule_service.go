package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
	"github.com/robonova/competition-core/scheduler"
)

type ScheduleService struct {
	scheduleRepo repositories.ScheduleRepository
	matchRepo    repositories.MatchRepository
	roster       JudgeRoster
	checker      *scheduler.Scheduler
	logger       *slog.Logger
}

func NewScheduleService(
	scheduleRepo repositories.ScheduleRepository,
	matchRepo repositories.MatchRepository,
	roster JudgeRoster,
	checker *scheduler.Scheduler,
	logger *slog.Logger,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		matchRepo:    matchRepo,
		roster:       roster,
		checker:      checker,
		logger:       logger,
	}
}

// rosterAvailability adapts the judge roster port to the scheduler. Roster
// lookup failures count as unavailable; the conflict surfaces the judge.
type rosterAvailability struct {
	ctx    context.Context
	roster JudgeRoster
}

func (a rosterAvailability) Available(judgeID int, slot models.TimeSlot) bool {
	if a.roster == nil {
		return true
	}
	ok, err := a.roster.AvailableAt(a.ctx, judgeID, slot)
	return err == nil && ok
}

// Schedule validates and stores a venue/table/slot assignment for a match.
// Non-critical conflicts are returned alongside the stored assignment;
// critical ones block it with ErrSchedulingConflict.
func (s *ScheduleService) Schedule(ctx context.Context, sm *models.ScheduledMatch) ([]scheduler.Conflict, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, sm.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.Status == models.MatchInProgress || match.Status == models.MatchCompleted || match.Status == models.MatchForfeit {
		return nil, ErrMatchAlreadyStarted
	}
	sm.TournamentID = match.TournamentID

	// One assignment per match; a change goes through Reschedule.
	if _, errCur := s.scheduleRepo.GetByMatch(ctx, nil, sm.MatchID); errCur == nil {
		return nil, ErrMatchAlreadyScheduled
	} else if !errors.Is(errCur, repositories.ErrScheduleNotFound) {
		return nil, errCur
	}

	conflicts, err := s.validate(ctx, sm)
	if err != nil {
		return nil, err
	}
	if scheduler.HasCritical(conflicts) {
		return conflicts, ErrSchedulingConflict
	}

	if err := s.scheduleRepo.Create(ctx, nil, sm); err != nil {
		return conflicts, err
	}
	s.logger.InfoContext(ctx, "match scheduled",
		slog.Int("match_id", sm.MatchID), slog.Int("venue_id", sm.VenueID),
		slog.Int("table", sm.TableNumber), slog.Int("warnings", len(conflicts)))
	return conflicts, nil
}

// Reschedule replaces an existing assignment. Once the match has started
// the schedule is history, not a plan; changes are rejected.
func (s *ScheduleService) Reschedule(ctx context.Context, sm *models.ScheduledMatch) ([]scheduler.Conflict, error) {
	current, err := s.scheduleRepo.GetByMatch(ctx, nil, sm.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrScheduleNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	match, err := s.matchRepo.GetByID(ctx, nil, sm.MatchID)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchInProgress || match.Status == models.MatchCompleted || match.Status == models.MatchForfeit {
		return nil, ErrMatchAlreadyStarted
	}
	sm.TournamentID = match.TournamentID

	conflicts, err := s.validate(ctx, sm)
	if err != nil {
		return nil, err
	}
	if scheduler.HasCritical(conflicts) {
		return conflicts, ErrSchedulingConflict
	}

	if err := s.scheduleRepo.Delete(ctx, nil, current.ID); err != nil {
		return conflicts, err
	}
	if err := s.scheduleRepo.Create(ctx, nil, sm); err != nil {
		return conflicts, err
	}
	return conflicts, nil
}

func (s *ScheduleService) validate(ctx context.Context, sm *models.ScheduledMatch) ([]scheduler.Conflict, error) {
	existing, err := s.scheduleRepo.ListByTournament(ctx, nil, sm.TournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, sm.TournamentID, nil)
	if err != nil {
		return nil, err
	}
	matchByID := make(map[int]*models.Match, len(matches))
	for _, m := range matches {
		matchByID[m.ID] = m
	}
	venueList, err := s.scheduleRepo.ListVenues(ctx, nil)
	if err != nil {
		return nil, err
	}
	venues := make(map[int]*models.Venue, len(venueList))
	for _, v := range venueList {
		venues[v.ID] = v
	}
	if _, ok := venues[sm.VenueID]; !ok {
		return nil, ErrVenueNotFound
	}

	others := make([]models.ScheduledMatch, 0, len(existing))
	for _, e := range existing {
		others = append(others, *e)
	}
	return s.checker.Validate(*sm, others, matchByID, rosterAvailability{ctx: ctx, roster: s.roster}, venues), nil
}

func (s *ScheduleService) Confirm(ctx context.Context, scheduleID int) error {
	err := s.scheduleRepo.Confirm(ctx, nil, scheduleID)
	if errors.Is(err, repositories.ErrScheduleNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *ScheduleService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.ScheduledMatch, error) {
	return s.scheduleRepo.ListByTournament(ctx, nil, tournamentID)
}

func (s *ScheduleService) CreateVenue(ctx context.Context, v *models.Venue) error {
	if v.Name == "" || v.Tables < 1 {
		return ErrValidationFailed
	}
	return s.scheduleRepo.CreateVenue(ctx, nil, v)
}

func (s *ScheduleService) ListVenues(ctx context.Context) ([]*models.Venue, error) {
	return s.scheduleRepo.ListVenues(ctx, nil)
}
