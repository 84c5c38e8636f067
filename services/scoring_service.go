package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/robonova/competition-core/events"
	"github.com/robonova/competition-core/live"
	"github.com/robonova/competition-core/metrics"
	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/repositories"
	"github.com/robonova/competition-core/scoring"
)

// SubmitResult is what a judge's client gets back for one submission.
type SubmitResult struct {
	Accepted   bool                    `json:"accepted"`
	Idempotent bool                    `json:"idempotent"`
	Aggregate  *models.AggregatedScore `json:"aggregate,omitempty"`
	Conflicts  []models.ScoreConflict  `json:"conflicts,omitempty"`
}

type ScoringService struct {
	sessionRepo    repositories.SessionRepository
	tournamentRepo repositories.TournamentRepository
	scoreRepo      repositories.ScoreRepository
	conflictRepo   repositories.ConflictRepository
	judges         JudgeRoster
	rubrics        RubricProvider
	books          *Books
	bus            *events.Bus
	logger         *slog.Logger

	// MinorThresholdPercent bounds deviations eligible for auto-resolve.
	MinorThresholdPercent float64
}

func NewScoringService(
	sessionRepo repositories.SessionRepository,
	tournamentRepo repositories.TournamentRepository,
	scoreRepo repositories.ScoreRepository,
	conflictRepo repositories.ConflictRepository,
	judges JudgeRoster,
	rubrics RubricProvider,
	books *Books,
	bus *events.Bus,
	minorThresholdPercent float64,
	logger *slog.Logger,
) *ScoringService {
	return &ScoringService{
		sessionRepo:           sessionRepo,
		tournamentRepo:        tournamentRepo,
		scoreRepo:             scoreRepo,
		conflictRepo:          conflictRepo,
		judges:                judges,
		rubrics:               rubrics,
		books:                 books,
		bus:                   bus,
		logger:                logger,
		MinorThresholdPercent: minorThresholdPercent,
	}
}

// SubmitScore runs one score update through the full pipeline: session and
// judge checks, ledger apply with idempotent resubmission, conflict
// evaluation and delta broadcast. The update is appended to the durable
// log inside the ledger accept, before the submission is acknowledged.
// Validation failures never reach the ledger or the log.
func (s *ScoringService) SubmitScore(ctx context.Context, update models.ScoreUpdate) (*SubmitResult, error) {
	sess, err := s.sessionRepo.GetByID(ctx, nil, update.SessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.Status != models.SessionActive {
		metrics.ScoreUpdatesRejected.WithLabelValues("session_not_active").Inc()
		return nil, ErrSessionNotActive
	}

	judge, err := s.judges.Judge(ctx, update.JudgeID)
	if err != nil || judge == nil {
		metrics.ScoreUpdatesRejected.WithLabelValues("unknown_judge").Inc()
		return nil, ErrJudgeNotFound
	}
	if !judge.CanScore(sess.CategoryID) {
		metrics.ScoreUpdatesRejected.WithLabelValues("judge_not_on_category").Inc()
		return nil, ErrJudgeNotOnCategory
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, sess.TournamentID)
	if err != nil {
		return nil, err
	}
	book := s.books.For(tournament)
	if !book.IsOpen(sess.ID) {
		// A restart lost the in-memory ledger of an already active
		// session; reopen it from the persisted update log.
		if err := s.reopenLedger(ctx, book, sess); err != nil {
			return nil, err
		}
	}

	if update.ID == uuid.Nil {
		update.ID = uuid.New()
	}
	update.ServerTime = time.Now()

	applied, err := book.Apply(update, func(u models.ScoreUpdate) error {
		return s.scoreRepo.AppendUpdate(ctx, nil, &u)
	})
	if err != nil {
		metrics.ScoreUpdatesRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, mapLedgerError(err)
	}
	if applied.Idempotent {
		return &SubmitResult{Accepted: true, Idempotent: true, Aggregate: applied.Aggregate}, nil
	}
	metrics.ScoreUpdatesAccepted.Inc()
	metrics.AggregateRecomputes.Inc()

	if err := s.scoreRepo.UpsertAggregate(ctx, nil, applied.Aggregate); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.TouchActivity(ctx, nil, sess.ID, update.ServerTime); err != nil {
		s.logger.WarnContext(ctx, "activity touch failed",
			slog.Int("session_id", sess.ID), slog.Any("error", err))
	}

	conflicts := s.evaluateConflicts(ctx, tournament, sess, applied.Aggregate, book)
	s.broadcast(ctx, sess, update, applied.Aggregate)

	return &SubmitResult{Accepted: true, Aggregate: applied.Aggregate, Conflicts: conflicts}, nil
}

// reopenLedger rebuilds a session ledger from the persisted update log,
// through the same sequence rules as live submissions.
func (s *ScoringService) reopenLedger(ctx context.Context, book *scoring.Book, sess *models.LiveScoringSession) error {
	rubric, err := s.rubrics.Rubric(ctx, sess.CategoryID)
	if err != nil {
		return ErrRubricRequired
	}
	persisted, err := s.scoreRepo.ListUpdates(ctx, nil, sess.ID)
	if err != nil {
		return err
	}
	seed := make([]models.ScoreUpdate, len(persisted))
	for i, u := range persisted {
		seed[i] = *u
	}
	book.Open(sess.ID, sess.TeamID, rubric, seed)
	return nil
}

// evaluateConflicts turns review flags into persisted conflict items,
// auto-resolving minor ones when the tournament allows it.
func (s *ScoringService) evaluateConflicts(
	ctx context.Context,
	tournament *models.Tournament,
	sess *models.LiveScoringSession,
	agg *models.AggregatedScore,
	book *scoring.Book,
) []models.ScoreConflict {
	if agg == nil || !agg.RequiresReview {
		return nil
	}
	rubric, err := s.rubrics.Rubric(ctx, sess.CategoryID)
	if err != nil {
		s.logger.WarnContext(ctx, "rubric lookup failed during conflict evaluation", slog.Any("error", err))
		return nil
	}
	resolver := &scoring.Resolver{
		AutoResolve:           tournament.AutoResolveConflicts,
		MinorThresholdPercent: s.MinorThresholdPercent,
	}

	open, err := s.conflictRepo.ListOpenBySession(ctx, nil, sess.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "open conflict scan failed", slog.Any("error", err))
	}
	alreadyOpen := func(c models.ScoreConflict) bool {
		for _, o := range open {
			if o.CriterionID == c.CriterionID && o.Kind == c.Kind &&
				((o.JudgeID == nil) == (c.JudgeID == nil)) &&
				(o.JudgeID == nil || *o.JudgeID == *c.JudgeID) {
				return true
			}
		}
		return false
	}

	var out []models.ScoreConflict
	for _, conflict := range resolver.Evaluate(rubric, agg) {
		if alreadyOpen(conflict) {
			continue
		}
		criterion, _ := rubric.CriterionByID(conflict.CriterionID)
		if resolver.CanAutoResolve(conflict, criterion) {
			conflict.Status = models.ConflictAutoResolved
			if _, errClear := book.ClearReview(sess.ID, conflict.CriterionID); errClear != nil {
				s.logger.WarnContext(ctx, "review clear failed", slog.Any("error", errClear))
			}
		}
		if err := s.conflictRepo.Create(ctx, nil, &conflict); err != nil {
			s.logger.WarnContext(ctx, "conflict persist failed", slog.Any("error", err))
			continue
		}
		metrics.ConflictsFlagged.WithLabelValues(string(conflict.Kind)).Inc()
		if conflict.Status == models.ConflictOpen {
			if s.bus != nil {
				errNotify := s.bus.Notify(events.Notification{
					Kind:         events.NotifyConflictRequiresReview,
					TournamentID: sess.TournamentID,
					SessionID:    sess.ID,
				})
				if errNotify != nil {
					s.logger.WarnContext(ctx, "conflict notification failed", slog.Any("error", errNotify))
				}
			}
		}
		out = append(out, conflict)
	}
	if len(out) > 0 && s.bus != nil {
		topic := live.SessionTopic(sess.ID)
		if err := s.bus.PublishDelta(topic, events.KindConflictFlagged, out, nil); err != nil {
			s.logger.WarnContext(ctx, "conflict delta publish failed", slog.Any("error", err))
		}
	}
	return out
}

// ResolveConflict applies a head-judge decision to an open conflict.
func (s *ScoringService) ResolveConflict(
	ctx context.Context,
	conflictID int,
	resolverID int,
	action models.ResolutionAction,
	overrideValue *float64,
	rationale string,
) (*models.AggregatedScore, error) {
	judge, err := s.judges.Judge(ctx, resolverID)
	if err != nil || judge == nil {
		return nil, ErrJudgeNotFound
	}
	if err := scoring.Authorize(judge); err != nil {
		return nil, ErrForbiddenOperation
	}

	conflict, err := s.conflictRepo.GetByID(ctx, nil, conflictID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflictNotFound) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}
	if conflict.Status != models.ConflictOpen {
		return nil, ErrInvalidStateTransition
	}

	sess, err := s.sessionRepo.GetByID(ctx, nil, conflict.SessionID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, sess.TournamentID)
	if err != nil {
		return nil, err
	}
	book := s.books.For(tournament)

	now := time.Now()
	var agg *models.AggregatedScore
	switch action {
	case models.ResolutionAccept:
		agg, err = book.ClearReview(conflict.SessionID, conflict.CriterionID)
	case models.ResolutionOverride:
		if overrideValue == nil {
			return nil, ErrValidationFailed
		}
		agg, err = book.Override(conflict.SessionID, conflict.CriterionID, *overrideValue, now)
	case models.ResolutionRescore:
		agg, err = book.ResetCriterion(conflict.SessionID, conflict.CriterionID, now)
	default:
		return nil, ErrValidationFailed
	}
	if err != nil {
		return nil, mapLedgerError(err)
	}

	resolution := &models.ConflictResolution{
		ResolverID:    resolverID,
		Action:        action,
		OverrideValue: overrideValue,
		Rationale:     rationale,
		ResolvedAt:    now,
	}
	if err := s.conflictRepo.Resolve(ctx, nil, conflictID, models.ConflictResolved, resolution); err != nil {
		return nil, err
	}
	if agg != nil {
		if err := s.scoreRepo.UpsertAggregate(ctx, nil, agg); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "conflict resolved",
		slog.Int("conflict_id", conflictID), slog.Int("resolver_id", resolverID),
		slog.String("action", string(action)))
	if s.bus != nil {
		topic := live.SessionTopic(conflict.SessionID)
		if err := s.bus.PublishDelta(topic, events.KindConflictResolved, conflict, nil); err != nil {
			s.logger.WarnContext(ctx, "resolution delta publish failed", slog.Any("error", err))
		}
	}
	return agg, nil
}

func (s *ScoringService) ListOpenConflicts(ctx context.Context, sessionID int) ([]*models.ScoreConflict, error) {
	return s.conflictRepo.ListOpenBySession(ctx, nil, sessionID)
}

// Aggregate returns the live projection for an open session, falling back
// to the persisted one for closed sessions.
func (s *ScoringService) Aggregate(ctx context.Context, sessionID int) (*models.AggregatedScore, error) {
	sess, err := s.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, sess.TournamentID)
	if err != nil {
		return nil, err
	}
	if agg, errLive := s.books.For(tournament).Aggregate(sessionID); errLive == nil && agg != nil {
		return agg, nil
	}
	agg, err := s.scoreRepo.GetAggregate(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrAggregateNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return agg, nil
}

func (s *ScoringService) broadcast(ctx context.Context, sess *models.LiveScoringSession, update models.ScoreUpdate, agg *models.AggregatedScore) {
	if s.bus == nil || agg == nil {
		return
	}
	topic := live.SessionTopic(sess.ID)
	if err := s.bus.PublishDelta(topic, events.KindScoreAccepted, update, nil); err != nil {
		s.logger.WarnContext(ctx, "score delta publish failed", slog.Any("error", err))
	}
	if err := s.bus.PublishDelta(topic, events.KindAggregateRecomputed, agg, agg.Redacted()); err != nil {
		s.logger.WarnContext(ctx, "aggregate delta publish failed", slog.Any("error", err))
	}
	metrics.BroadcastDeltas.Add(2)
}

// mapLedgerError lifts ledger sentinels that have a service-level
// counterpart; the rest pass through for the HTTP layer to classify.
func mapLedgerError(err error) error {
	if errors.Is(err, scoring.ErrScoreFinalized) {
		return ErrScoreFinalized
	}
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, scoring.ErrValueOutOfRange):
		return "value_out_of_range"
	case errors.Is(err, scoring.ErrUnknownCriterion):
		return "unknown_criterion"
	case errors.Is(err, scoring.ErrStaleSequence):
		return "stale_sequence"
	case errors.Is(err, scoring.ErrScoreFinalized):
		return "finalized"
	default:
		return "other"
	}
}
