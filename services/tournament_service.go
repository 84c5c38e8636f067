package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
)

type TournamentService struct {
	repo   repositories.TournamentRepository
	logger *slog.Logger
}

func NewTournamentService(repo repositories.TournamentRepository, logger *slog.Logger) *TournamentService {
	return &TournamentService{repo: repo, logger: logger}
}

func (s *TournamentService) Create(ctx context.Context, t *models.Tournament) error {
	if t.Name == "" {
		return ErrTournamentNameRequired
	}
	switch t.Format {
	case models.FormatSingleElimination, models.FormatDoubleElimination,
		models.FormatRoundRobin, models.FormatSwiss:
	default:
		return ErrUnknownFormat
	}
	if t.AggregationMethod == "" {
		t.AggregationMethod = models.AggregateAverage
	}
	if t.ConflictThresholdPercent <= 0 {
		t.ConflictThresholdPercent = 20
	}
	t.Status = models.TournamentSetup

	if err := s.repo.Create(ctx, nil, t); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", t.ID), slog.String("format", string(t.Format)))
	return nil
}

func (s *TournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TournamentService) List(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, nil, limit, offset)
}

// UpdateStatus moves a tournament along its lifecycle. Backward moves are
// rejected except seeding back to setup before any bracket exists.
func (s *TournamentService) UpdateStatus(ctx context.Context, id int, to models.TournamentStatus) (*models.Tournament, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransitionTournament(t.Status, to) {
		return nil, ErrInvalidStateTransition
	}
	if err := s.repo.UpdateStatus(ctx, nil, id, to); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("from", string(t.Status)), slog.String("to", string(to)))
	t.Status = to
	return t, nil
}
