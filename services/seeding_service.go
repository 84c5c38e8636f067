package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
	"github.com/robonova/competition-core/seeding"
)

type SeedingService struct {
	tournamentRepo repositories.TournamentRepository
	seedingRepo    repositories.SeedingRepository
	roster         TeamRoster
	engine         *seeding.Engine
	logger         *slog.Logger
}

func NewSeedingService(
	tournamentRepo repositories.TournamentRepository,
	seedingRepo repositories.SeedingRepository,
	roster TeamRoster,
	logger *slog.Logger,
) *SeedingService {
	return &SeedingService{
		tournamentRepo: tournamentRepo,
		seedingRepo:    seedingRepo,
		roster:         roster,
		engine:         seeding.New(),
		logger:         logger,
	}
}

// Reseed computes and stores the seed order from the current roster.
// Legal only before the bracket exists; afterwards the seeding is part of
// the frozen structure.
func (s *SeedingService) Reseed(ctx context.Context, tournamentID int, overrides map[int]int) ([]*models.Seeding, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, ErrTournamentNotFound
	}
	if tournament.Status != models.TournamentSetup && tournament.Status != models.TournamentSeeding {
		return nil, ErrInvalidStateTransition
	}

	inputs, err := s.roster.Entrants(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(inputs) < 2 {
		return nil, ErrNotEnoughTeams
	}
	for i := range inputs {
		if seed, ok := overrides[inputs[i].TeamID]; ok {
			manual := seed
			inputs[i].ManualSeed = &manual
		}
	}

	ranked, err := s.engine.Rank(tournamentID, inputs)
	if err != nil {
		return nil, err
	}

	seeds := make([]*models.Seeding, len(ranked))
	for i := range ranked {
		ranked[i].CreatedAt = time.Now()
		seeds[i] = &ranked[i]
	}
	if err := s.seedingRepo.ReplaceAll(ctx, nil, tournamentID, seeds); err != nil {
		return nil, err
	}

	if tournament.Status == models.TournamentSetup {
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournamentID, models.TournamentSeeding); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "tournament reseeded",
		slog.Int("tournament_id", tournamentID), slog.Int("teams", len(seeds)))
	return seeds, nil
}

func (s *SeedingService) List(ctx context.Context, tournamentID int) ([]*models.Seeding, error) {
	return s.seedingRepo.ListByTournament(ctx, nil, tournamentID)
}
