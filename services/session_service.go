package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robonova/competition-core/events"
	"github.com/robonova/competition-core/live"
	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
	"github.com/robonova/competition-core/scoring"
)

const idlePauseReason = "auto-paused after inactivity"

type SessionService struct {
	sessionRepo    repositories.SessionRepository
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	scoreRepo      repositories.ScoreRepository
	rubrics        RubricProvider
	books          *Books
	standings      *StandingsService
	bus            *events.Bus
	logger         *slog.Logger

	// IdleTimeout is how long an active session may sit without a score
	// update before the sweeper pauses it.
	IdleTimeout time.Duration
}

func NewSessionService(
	sessionRepo repositories.SessionRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	rubrics RubricProvider,
	books *Books,
	standings *StandingsService,
	bus *events.Bus,
	idleTimeout time.Duration,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:    sessionRepo,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		scoreRepo:      scoreRepo,
		rubrics:        rubrics,
		books:          books,
		standings:      standings,
		bus:            bus,
		logger:         logger,
		IdleTimeout:    idleTimeout,
	}
}

func (s *SessionService) Create(ctx context.Context, sess *models.LiveScoringSession) error {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, sess.TournamentID); err != nil {
		return ErrTournamentNotFound
	}
	rubric, err := s.rubrics.Rubric(ctx, sess.CategoryID)
	if err != nil || rubric == nil || len(rubric.Criteria) == 0 {
		return ErrRubricRequired
	}
	sess.Status = models.SessionScheduled
	if sess.ScheduledAt.IsZero() {
		sess.ScheduledAt = time.Now()
	}
	sess.LastActivityAt = time.Now()
	return s.sessionRepo.Create(ctx, nil, sess)
}

func (s *SessionService) Get(ctx context.Context, id int) (*models.LiveScoringSession, error) {
	sess, err := s.sessionRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.LiveScoringSession, error) {
	return s.sessionRepo.ListByTournament(ctx, nil, tournamentID)
}

// Activate opens the session for score submissions. A session bound to a
// match requires the match to have reached ready; the in-memory ledger is
// seeded from any already persisted updates so a restart loses nothing.
func (s *SessionService) Activate(ctx context.Context, sessionID int) (*models.LiveScoringSession, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.MatchID != nil && sess.Status == models.SessionScheduled {
		match, errMatch := s.matchRepo.GetByID(ctx, nil, *sess.MatchID)
		if errMatch != nil {
			return nil, errMatch
		}
		if match.Status != models.MatchReady && match.Status != models.MatchInProgress {
			return nil, ErrMatchNotReady
		}
	}
	if err := scoring.Transition(sess, models.SessionActive, time.Now()); err != nil {
		return nil, ErrInvalidStateTransition
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, sess.TournamentID)
	if err != nil {
		return nil, err
	}
	rubric, err := s.rubrics.Rubric(ctx, sess.CategoryID)
	if err != nil {
		return nil, ErrRubricRequired
	}
	persisted, err := s.scoreRepo.ListUpdates(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	seed := make([]models.ScoreUpdate, len(persisted))
	for i, u := range persisted {
		seed[i] = *u
	}
	s.books.For(tournament).Open(sessionID, sess.TeamID, rubric, seed)

	if err := s.sessionRepo.Update(ctx, nil, sess); err != nil {
		return nil, err
	}
	s.publishState(ctx, sess)
	return sess, nil
}

// Pause suspends an active session; scores are rejected until resume.
func (s *SessionService) Pause(ctx context.Context, sessionID int, reason string) (*models.LiveScoringSession, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := scoring.Pause(sess, reason, time.Now()); err != nil {
		return nil, ErrInvalidStateTransition
	}
	if err := s.sessionRepo.Update(ctx, nil, sess); err != nil {
		return nil, err
	}
	s.publishState(ctx, sess)
	return sess, nil
}

func (s *SessionService) Resume(ctx context.Context, sessionID int) (*models.LiveScoringSession, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := scoring.Transition(sess, models.SessionActive, time.Now()); err != nil {
		return nil, ErrInvalidStateTransition
	}
	sess.PauseReason = nil
	if err := s.sessionRepo.Update(ctx, nil, sess); err != nil {
		return nil, err
	}
	s.publishState(ctx, sess)
	return sess, nil
}

// Complete closes the session and freezes its aggregate. Without force,
// every criterion needs the rubric's minimum number of submissions; force
// is an admin-only override for abandoned sessions.
func (s *SessionService) Complete(ctx context.Context, sessionID int, force bool, actor Role) (*models.AggregatedScore, error) {
	if force && actor != RoleAdmin {
		return nil, ErrForbiddenOperation
	}
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, sess.TournamentID)
	if err != nil {
		return nil, err
	}
	book := s.books.For(tournament)

	if !force {
		if errCov := book.Coverage(sessionID); errCov != nil {
			return nil, ErrSessionNotCoverable
		}
	}
	if err := scoring.Transition(sess, models.SessionCompleted, time.Now()); err != nil {
		return nil, ErrInvalidStateTransition
	}

	agg, err := book.Finalize(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.scoreRepo.UpsertAggregate(ctx, nil, agg); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, nil, sess); err != nil {
		return nil, err
	}
	book.Close(sessionID)

	s.publishState(ctx, sess)
	if s.bus != nil {
		err := s.bus.Notify(events.Notification{
			Kind:         events.NotifySessionCompleted,
			TournamentID: sess.TournamentID,
			SessionID:    sess.ID,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "session-completed notification failed", slog.Any("error", err))
		}
	}
	if s.standings != nil {
		if _, errStand := s.standings.Rebuild(ctx, sess.TournamentID); errStand != nil {
			s.logger.WarnContext(ctx, "standings rebuild failed",
				slog.Int("tournament_id", sess.TournamentID), slog.Any("error", errStand))
		}
	}
	s.logger.InfoContext(ctx, "session completed",
		slog.Int("session_id", sessionID), slog.Bool("forced", force),
		slog.Float64("total", agg.Total))
	return agg, nil
}

// Cancel closes a session early without an aggregate. Audited and
// role-gated: only admins and head judges may do it.
func (s *SessionService) Cancel(ctx context.Context, sessionID int, actorID int, actor Role, reason string) (*models.LiveScoringSession, error) {
	if actor != RoleAdmin && actor != RoleHeadJudge {
		return nil, ErrForbiddenOperation
	}
	if reason == "" {
		return nil, ErrValidationFailed
	}
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == models.SessionCompleted {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now()
	sess.Status = models.SessionCompleted
	sess.CompletedAt = &now
	sess.LastActivityAt = now
	sess.CancelReason = &reason
	sess.CanceledBy = &actorID
	if err := s.sessionRepo.Update(ctx, nil, sess); err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, sess.TournamentID)
	if err == nil {
		s.books.For(tournament).Close(sessionID)
	}

	s.logger.InfoContext(ctx, "session canceled",
		slog.Int("session_id", sessionID), slog.Int("actor_id", actorID),
		slog.String("reason", reason))
	s.publishState(ctx, sess)
	return sess, nil
}

// SweepIdle pauses active sessions with no score activity past the idle
// timeout and raises an operator alert for each. Returns how many were
// paused.
func (s *SessionService) SweepIdle(ctx context.Context) (int, error) {
	if s.IdleTimeout <= 0 {
		return 0, nil
	}
	active, err := s.sessionRepo.ListByStatus(ctx, nil, models.SessionActive)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-s.IdleTimeout)
	paused := 0
	for _, sess := range active {
		if sess.LastActivityAt.After(cutoff) {
			continue
		}
		if _, errPause := s.Pause(ctx, sess.ID, idlePauseReason); errPause != nil {
			s.logger.WarnContext(ctx, "idle pause failed",
				slog.Int("session_id", sess.ID), slog.Any("error", errPause))
			continue
		}
		paused++
		if s.bus != nil {
			errNotify := s.bus.Notify(events.Notification{
				Kind:         events.NotifySessionIdlePaused,
				TournamentID: sess.TournamentID,
				SessionID:    sess.ID,
				Detail:       idlePauseReason,
			})
			if errNotify != nil {
				s.logger.WarnContext(ctx, "idle-pause notification failed",
					slog.Int("session_id", sess.ID), slog.Any("error", errNotify))
			}
		}
	}
	return paused, nil
}

// RunIdleSweeper loops SweepIdle until the context ends.
func (s *SessionService) RunIdleSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepIdle(ctx); err != nil {
				s.logger.WarnContext(ctx, "idle sweep failed", slog.Any("error", err))
			} else if n > 0 {
				s.logger.InfoContext(ctx, "idle sessions paused", slog.Int("count", n))
			}
		}
	}
}

func (s *SessionService) publishState(ctx context.Context, sess *models.LiveScoringSession) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishDelta(live.SessionTopic(sess.ID), events.KindSessionState, sess, sess); err != nil {
		s.logger.WarnContext(ctx, "session state publish failed",
			slog.Int("session_id", sess.ID), slog.Any("error", err))
	}
}
