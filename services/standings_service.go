package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robonova/competition-core/events"
	"github.com/robonova/competition-core/live"
	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
)

const (
	pointsWin  = 3
	pointsDraw = 1
)

type StandingsService struct {
	standingRepo repositories.StandingRepository
	matchRepo    repositories.MatchRepository
	scoreRepo    repositories.ScoreRepository
	seedingRepo  repositories.SeedingRepository
	bus          *events.Bus
	logger       *slog.Logger
}

func NewStandingsService(
	standingRepo repositories.StandingRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	seedingRepo repositories.SeedingRepository,
	bus *events.Bus,
	logger *slog.Logger,
) *StandingsService {
	return &StandingsService{
		standingRepo: standingRepo,
		matchRepo:    matchRepo,
		scoreRepo:    scoreRepo,
		seedingRepo:  seedingRepo,
		bus:          bus,
		logger:       logger,
	}
}

// Rebuild recomputes the full standings projection for a tournament from
// match results and finalized session aggregates, then stores and ranks
// it. Inputs load in parallel.
func (s *StandingsService) Rebuild(ctx context.Context, tournamentID int) ([]*models.Standing, error) {
	var (
		matches    []*models.Match
		aggregates []*models.AggregatedScore
		seeds      []*models.Seeding
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, nil, tournamentID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		aggregates, err = s.scoreRepo.ListFinalizedByTournament(gCtx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		seeds, err = s.seedingRepo.ListByTournament(gCtx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now()
	byTeam := make(map[int]*models.Standing)
	standingFor := func(teamID int) *models.Standing {
		if st, ok := byTeam[teamID]; ok {
			return st
		}
		st := &models.Standing{TournamentID: tournamentID, TeamID: teamID, UpdatedAt: now}
		byTeam[teamID] = st
		return st
	}
	for _, seed := range seeds {
		standingFor(seed.TeamID)
	}

	for _, m := range matches {
		if m.Status != models.MatchCompleted && m.Status != models.MatchForfeit {
			continue
		}
		if m.Team1ID == nil || m.Team2ID == nil {
			continue
		}
		st1, st2 := standingFor(*m.Team1ID), standingFor(*m.Team2ID)
		st1.GamesPlayed++
		st2.GamesPlayed++
		if m.Score1 != nil && m.Score2 != nil {
			st1.ScoreFor += *m.Score1
			st1.ScoreAgainst += *m.Score2
			st2.ScoreFor += *m.Score2
			st2.ScoreAgainst += *m.Score1
		}
		switch {
		case m.WinnerID == nil:
			st1.Draws++
			st2.Draws++
			st1.Points += pointsDraw
			st2.Points += pointsDraw
		case *m.WinnerID == *m.Team1ID:
			st1.Wins++
			st2.Losses++
			st1.Points += pointsWin
		default:
			st2.Wins++
			st1.Losses++
			st2.Points += pointsWin
		}
	}

	for _, agg := range aggregates {
		standingFor(agg.TeamID).TotalScore += agg.Total
	}

	standings := make([]*models.Standing, 0, len(byTeam))
	for _, st := range byTeam {
		standings = append(standings, st)
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ScoreDifference() != b.ScoreDifference() {
			return a.ScoreDifference() > b.ScoreDifference()
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.TeamID < b.TeamID
	})
	for i, st := range standings {
		rank := i + 1
		st.Rank = &rank
		if err := s.standingRepo.Upsert(ctx, nil, st); err != nil {
			return nil, err
		}
	}

	if s.bus != nil {
		topic := live.TournamentTopic(tournamentID)
		if err := s.bus.PublishDelta(topic, events.KindStandingsUpdated, standings, standings); err != nil {
			s.logger.WarnContext(ctx, "standings delta publish failed", slog.Any("error", err))
		}
	}
	return standings, nil
}

func (s *StandingsService) List(ctx context.Context, tournamentID, limit, offset int) ([]*models.Standing, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.standingRepo.ListByTournament(ctx, nil, tournamentID, limit, offset)
}
