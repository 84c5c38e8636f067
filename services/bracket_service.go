package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robonova/competition-core/brackets"
	"github.com/robonova/competition-core/events"
	"github.com/robonova/competition-core/live"
	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
)

type BracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	seedingRepo    repositories.SeedingRepository
	matchRepo      repositories.MatchRepository
	standings      *StandingsService
	bus            *events.Bus
	logger         *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	seedingRepo repositories.SeedingRepository,
	matchRepo repositories.MatchRepository,
	standings *StandingsService,
	bus *events.Bus,
	logger *slog.Logger,
) *BracketService {
	return &BracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		seedingRepo:    seedingRepo,
		matchRepo:      matchRepo,
		standings:      standings,
		bus:            bus,
		logger:         logger,
	}
}

// GenerateBracket builds and persists the full match graph for a seeded
// tournament and activates it. The blueprint references matches by UID;
// persistence resolves UIDs to DB ids in a second pass inside one
// transaction.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, ErrTournamentNotFound
	}
	if tournament.Status != models.TournamentSeeding {
		return nil, ErrInvalidStateTransition
	}
	existing, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrBracketAlreadyExists
	}

	seeds, err := s.seedingRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(seeds) < 2 {
		return nil, ErrNotEnoughTeams
	}
	entrants := make([]brackets.Entrant, len(seeds))
	for i, seed := range seeds {
		entrants[i] = brackets.Entrant{TeamID: seed.TeamID, Seed: seed.SeedNumber}
	}

	builder, err := brackets.ForFormat(tournament.Format)
	if err != nil {
		return nil, ErrUnknownFormat
	}
	blueprint, err := builder.Generate(ctx, brackets.GenerateParams{
		Tournament: tournament,
		Entrants:   entrants,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s bracket for tournament %d: %w", builder.Name(), tournamentID, err)
	}

	created := make([]*models.Match, 0, len(blueprint))
	err = withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		idByUID := make(map[string]int, len(blueprint))
		for _, bp := range blueprint {
			m := s.matchFromBlueprint(tournamentID, bp)
			if errCreate := s.matchRepo.Create(ctx, tx, m); errCreate != nil {
				return fmt.Errorf("persist match %s: %w", bp.UID, errCreate)
			}
			idByUID[bp.UID] = m.ID
			created = append(created, m)
		}
		for i, bp := range blueprint {
			nextID, nextSlot := resolveLink(idByUID, bp.WinnerToUID, bp.WinnerToSlot)
			loserID, loserSlot := resolveLink(idByUID, bp.LoserToUID, bp.LoserToSlot)
			if nextID == nil && loserID == nil {
				continue
			}
			m := created[i]
			m.NextMatchID, m.NextMatchSlot = nextID, nextSlot
			m.LoserNextMatchID, m.LoserNextMatchSlot = loserID, loserSlot
			if errLink := s.matchRepo.UpdateLinks(ctx, tx, m.ID, nextID, nextSlot, loserID, loserSlot); errLink != nil {
				return fmt.Errorf("link match %s: %w", bp.UID, errLink)
			}
		}
		if errStatus := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.TournamentActive); errStatus != nil {
			return errStatus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("builder", builder.Name()),
		slog.Int("matches", len(created)))
	s.notifyReady(ctx, tournament, created)
	return created, nil
}

func (s *BracketService) matchFromBlueprint(tournamentID int, bp *brackets.BlueprintMatch) *models.Match {
	uid := bp.UID
	m := &models.Match{
		TournamentID: tournamentID,
		BracketUID:   &uid,
		BracketType:  bp.BracketType,
		Round:        bp.Round,
		OrderInRound: bp.OrderInRound,
		Team1ID:      bp.Team1ID,
		Team2ID:      bp.Team2ID,
		Status:       models.MatchPending,
	}
	switch {
	case bp.IsBye && bp.ByeTeamID != nil:
		// Seeded bye: resolved at generation time. The blueprint already
		// prefills the winner into the downstream slot.
		m.Status = models.MatchBye
		m.WinnerID = bp.ByeTeamID
	case bp.IsBye:
		// Collapsed pass-through: the occupant arrives at run time and
		// advances without playing.
		m.Status = models.MatchBye
	case m.Team1ID != nil && m.Team2ID != nil:
		m.Status = models.MatchReady
	}
	return m
}

func resolveLink(idByUID map[string]int, uid *string, slot int) (*int, *int) {
	if uid == nil {
		return nil, nil
	}
	id, ok := idByUID[*uid]
	if !ok {
		return nil, nil
	}
	return &id, &slot
}

// StartMatch moves a ready match to in_progress.
func (s *BracketService) StartMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.MatchInProgress {
		return nil, ErrMatchAlreadyStarted
	}
	if m.Status != models.MatchReady {
		return nil, ErrMatchNotReady
	}
	now := time.Now()
	m.Status = models.MatchInProgress
	m.StartedAt = &now
	if err := s.matchRepo.Update(ctx, nil, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ReportResult records the final score of a match and advances the
// bracket. Draws are legal only in round-robin and swiss play.
func (s *BracketService) ReportResult(ctx context.Context, matchID int, score1, score2 float64) (*models.Match, error) {
	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.MatchCompleted || m.Status == models.MatchForfeit || m.Status == models.MatchBye {
		return nil, ErrInvalidStateTransition
	}
	if m.Status != models.MatchInProgress && m.Status != models.MatchReady {
		return nil, ErrMatchNotReady
	}
	if m.Team1ID == nil || m.Team2ID == nil {
		return nil, ErrMatchNotReady
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, m.TournamentID)
	if err != nil {
		return nil, err
	}

	m.Score1, m.Score2 = &score1, &score2
	switch {
	case score1 > score2:
		m.WinnerID, m.LoserID = m.Team1ID, m.Team2ID
	case score2 > score1:
		m.WinnerID, m.LoserID = m.Team2ID, m.Team1ID
	default:
		if tournament.Format != models.FormatRoundRobin && tournament.Format != models.FormatSwiss {
			return nil, ErrValidationFailed
		}
	}

	err = withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return s.completeAndAdvance(ctx, tx, tournament, m, models.MatchCompleted)
	})
	if err != nil {
		return nil, err
	}
	s.afterResult(ctx, tournament, m)
	return m, nil
}

// ForfeitMatch awards the match to the opponent of the withdrawing team.
func (s *BracketService) ForfeitMatch(ctx context.Context, matchID, teamID int) (*models.Match, error) {
	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Resolved() || m.Status == models.MatchCompleted {
		return nil, ErrInvalidStateTransition
	}
	if !m.HasTeam(teamID) {
		return nil, ErrTeamNotFound
	}
	if m.Team1ID != nil && *m.Team1ID == teamID {
		m.WinnerID, m.LoserID = m.Team2ID, m.Team1ID
	} else {
		m.WinnerID, m.LoserID = m.Team1ID, m.Team2ID
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, m.TournamentID)
	if err != nil {
		return nil, err
	}
	err = withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return s.completeAndAdvance(ctx, tx, tournament, m, models.MatchForfeit)
	})
	if err != nil {
		return nil, err
	}
	s.afterResult(ctx, tournament, m)
	return m, nil
}

// completeAndAdvance marks the match finished and pushes its winner and
// loser into their downstream slots, chasing pass-through byes until the
// occupants come to rest.
func (s *BracketService) completeAndAdvance(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, m *models.Match, status models.MatchStatus) error {
	now := time.Now()
	m.Status = status
	m.CompletedAt = &now
	if err := s.matchRepo.Update(ctx, tx, m); err != nil {
		return err
	}

	// A grand final taken by the winners-side entrant ends the tournament;
	// the reset match never runs.
	if m.BracketType == models.BracketGrandFinal && m.Round == 1 &&
		m.WinnerID != nil && m.Team1ID != nil && *m.WinnerID == *m.Team1ID {
		if m.NextMatchID != nil {
			if err := s.voidReset(ctx, tx, *m.NextMatchID, *m.WinnerID, now); err != nil {
				return err
			}
		}
		return s.tournamentRepo.UpdateStatus(ctx, tx, tournament.ID, models.TournamentCompleted)
	}

	if m.WinnerID != nil && m.NextMatchID != nil && m.NextMatchSlot != nil {
		if err := s.push(ctx, tx, *m.WinnerID, *m.NextMatchID, *m.NextMatchSlot, now); err != nil {
			return err
		}
	}
	if m.LoserID != nil && m.LoserNextMatchID != nil && m.LoserNextMatchSlot != nil {
		if err := s.push(ctx, tx, *m.LoserID, *m.LoserNextMatchID, *m.LoserNextMatchSlot, now); err != nil {
			return err
		}
	}

	if m.NextMatchID == nil && m.BracketType != models.BracketConsolation &&
		tournament.Format != models.FormatRoundRobin && tournament.Format != models.FormatSwiss {
		// Final of an elimination bracket.
		return s.tournamentRepo.UpdateStatus(ctx, tx, tournament.ID, models.TournamentCompleted)
	}
	return nil
}

// push places a team into one slot of a downstream match. A pass-through
// bye resolves immediately and forwards the occupant again.
func (s *BracketService) push(ctx context.Context, tx *sql.Tx, teamID, matchID, slot int, now time.Time) error {
	target, err := s.matchRepo.GetByID(ctx, tx, matchID)
	if err != nil {
		return err
	}
	if slot == 1 {
		target.Team1ID = &teamID
	} else {
		target.Team2ID = &teamID
	}

	switch {
	case target.Status == models.MatchBye && !target.Resolved():
		target.WinnerID = &teamID
		target.CompletedAt = &now
		if err := s.matchRepo.Update(ctx, tx, target); err != nil {
			return err
		}
		if target.NextMatchID != nil && target.NextMatchSlot != nil {
			return s.push(ctx, tx, teamID, *target.NextMatchID, *target.NextMatchSlot, now)
		}
		return nil
	case target.Team1ID != nil && target.Team2ID != nil && target.Status == models.MatchPending:
		target.Status = models.MatchReady
	}
	return s.matchRepo.Update(ctx, tx, target)
}

// voidReset closes an unplayed bracket-reset match.
func (s *BracketService) voidReset(ctx context.Context, tx *sql.Tx, matchID, winnerID int, now time.Time) error {
	reset, err := s.matchRepo.GetByID(ctx, tx, matchID)
	if err != nil {
		return err
	}
	reset.Status = models.MatchBye
	reset.WinnerID = &winnerID
	reset.CompletedAt = &now
	return s.matchRepo.Update(ctx, tx, reset)
}

func (s *BracketService) afterResult(ctx context.Context, tournament *models.Tournament, m *models.Match) {
	if s.standings != nil {
		if _, err := s.standings.Rebuild(ctx, tournament.ID); err != nil {
			s.logger.WarnContext(ctx, "standings rebuild failed",
				slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
		}
	}
	if s.bus != nil {
		topic := live.TournamentTopic(tournament.ID)
		if err := s.bus.PublishDelta(topic, events.KindMatchCompleted, m, m); err != nil {
			s.logger.WarnContext(ctx, "match delta publish failed", slog.Any("error", err))
		}
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournament.ID, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "ready-scan failed", slog.Any("error", err))
		return
	}
	s.notifyReady(ctx, tournament, matches)
}

func (s *BracketService) notifyReady(ctx context.Context, tournament *models.Tournament, matches []*models.Match) {
	if s.bus == nil {
		return
	}
	for _, m := range matches {
		if m.Status != models.MatchReady {
			continue
		}
		err := s.bus.Notify(events.Notification{
			Kind:         events.NotifyMatchReady,
			TournamentID: tournament.ID,
			MatchID:      m.ID,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "match-ready notification failed",
				slog.Int("match_id", m.ID), slog.Any("error", err))
		}
	}
}

// GenerateNextSwissRound pairs the next swiss round from current
// standings once every match of the previous round is resolved.
func (s *BracketService) GenerateNextSwissRound(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, ErrTournamentNotFound
	}
	if tournament.Format != models.FormatSwiss {
		return nil, ErrUnknownFormat
	}
	if tournament.Status != models.TournamentActive {
		return nil, ErrInvalidStateTransition
	}

	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return nil, err
	}
	currentRound := 0
	points := make(map[int]int)
	hadBye := make(map[int]bool)
	played := make(map[[2]int]bool)
	for _, m := range matches {
		if m.Round > currentRound {
			currentRound = m.Round
		}
		if m.Status != models.MatchCompleted && m.Status != models.MatchForfeit && m.Status != models.MatchBye {
			return nil, ErrMatchNotResolved
		}
		if m.Team1ID != nil && m.Team2ID != nil {
			played[brackets.PairKey(*m.Team1ID, *m.Team2ID)] = true
		}
		if m.Status == models.MatchBye && m.WinnerID != nil {
			hadBye[*m.WinnerID] = true
			points[*m.WinnerID] += 3
			continue
		}
		switch {
		case m.WinnerID != nil:
			points[*m.WinnerID] += 3
		case m.Team1ID != nil && m.Team2ID != nil:
			points[*m.Team1ID]++
			points[*m.Team2ID]++
		}
	}

	seeds, err := s.seedingRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	entries := make([]brackets.SwissEntry, len(seeds))
	for i, seed := range seeds {
		entries[i] = brackets.SwissEntry{
			TeamID: seed.TeamID,
			Points: points[seed.TeamID],
			HadBye: hadBye[seed.TeamID],
		}
	}

	builder := brackets.NewSwissBuilder()
	blueprint, err := builder.PairRound(currentRound+1, entries, played)
	if err != nil {
		return nil, err
	}

	created := make([]*models.Match, 0, len(blueprint))
	err = withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		for _, bp := range blueprint {
			m := s.matchFromBlueprint(tournamentID, bp)
			if errCreate := s.matchRepo.Create(ctx, tx, m); errCreate != nil {
				return errCreate
			}
			created = append(created, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyReady(ctx, tournament, created)
	return created, nil
}

func (s *BracketService) ListMatches(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID, round)
}

func (s *BracketService) getMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}
