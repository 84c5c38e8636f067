package scoring

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robonova/competition-core/models"
)

var (
	ErrValueOutOfRange  = errors.New("score value outside criterion range")
	ErrUnknownCriterion = errors.New("criterion is not part of the rubric")
	ErrStaleSequence    = errors.New("score update sequence is older than the accepted one")
	ErrScoreFinalized   = errors.New("aggregated score is finalized")
)

type seqKey struct {
	JudgeID     int
	CriterionID int
}

// sessionLedger is the single ordering point for one session: its mutex
// is held across accept-update and recompute-aggregate, so no two
// recomputations interleave for the same (team, session).
type sessionLedger struct {
	mu     sync.Mutex
	teamID int
	rubric *models.Rubric

	// latest accepted value per criterion per judge; last sequence wins.
	latest  map[int]map[int]models.JudgeScore
	lastSeq map[seqKey]int64

	aggregate *models.AggregatedScore
	finalized bool
}

// ApplyResult reports what happened to one submission.
type ApplyResult struct {
	Accepted   bool
	Idempotent bool
	Aggregate  *models.AggregatedScore
}

// PersistFunc durably appends one validated update. It runs under the
// session lock, after validation and before acceptance.
type PersistFunc func(models.ScoreUpdate) error

// Book keeps the in-memory ledgers for all open sessions. Sessions are
// independent units of mutation: different sessions proceed fully in
// parallel.
type Book struct {
	mu         sync.RWMutex
	aggregator *Aggregator
	sessions   map[int]*sessionLedger
}

func NewBook(aggregator *Aggregator) *Book {
	return &Book{
		aggregator: aggregator,
		sessions:   make(map[int]*sessionLedger),
	}
}

// Open registers a session ledger. Seed replays already persisted updates
// (recovery after restart); they pass through the same sequence rules.
func (b *Book) Open(sessionID, teamID int, rubric *models.Rubric, seed []models.ScoreUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[sessionID]; ok {
		return
	}
	led := &sessionLedger{
		teamID:  teamID,
		rubric:  rubric,
		latest:  make(map[int]map[int]models.JudgeScore),
		lastSeq: make(map[seqKey]int64),
	}
	for _, u := range seed {
		led.accept(u)
	}
	if len(seed) > 0 {
		led.aggregate = b.aggregator.Aggregate(rubric, led.latest, sessionID, teamID, time.Now())
	}
	b.sessions[sessionID] = led
}

// IsOpen reports whether a session has a live ledger.
func (b *Book) IsOpen(sessionID int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.sessions[sessionID]
	return ok
}

// Close drops a session ledger once its aggregate has been persisted.
func (b *Book) Close(sessionID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

func (b *Book) ledger(sessionID int) (*sessionLedger, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	led, ok := b.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %d has no open ledger", sessionID)
	}
	return led, nil
}

// Apply validates and accepts one score update, recomputing the aggregate
// atomically with respect to other submissions for the same session.
// Resubmitting the same (judge, criterion, sequence) is idempotent. When
// persist is non-nil the update is durable before it is acknowledged: a
// failed persist leaves the ledger untouched, so the client's retry of
// the same sequence is a fresh accept rather than a lost write.
func (b *Book) Apply(update models.ScoreUpdate, persist PersistFunc) (ApplyResult, error) {
	led, err := b.ledger(update.SessionID)
	if err != nil {
		return ApplyResult{}, err
	}

	led.mu.Lock()
	defer led.mu.Unlock()

	if led.finalized {
		return ApplyResult{}, ErrScoreFinalized
	}

	criterion, ok := led.rubric.CriterionByID(update.CriterionID)
	if !ok {
		return ApplyResult{}, fmt.Errorf("%w: criterion %d", ErrUnknownCriterion, update.CriterionID)
	}
	if update.Value < criterion.MinValue || update.Value > criterion.MaxValue {
		return ApplyResult{}, fmt.Errorf("%w: %v not in [%v, %v]",
			ErrValueOutOfRange, update.Value, criterion.MinValue, criterion.MaxValue)
	}

	key := seqKey{JudgeID: update.JudgeID, CriterionID: update.CriterionID}
	if last, seen := led.lastSeq[key]; seen {
		if update.Sequence == last {
			// Idempotent resubmission: no recompute, no double counting.
			return ApplyResult{Accepted: true, Idempotent: true, Aggregate: led.aggregate}, nil
		}
		if update.Sequence < last {
			return ApplyResult{}, fmt.Errorf("%w: got %d, have %d", ErrStaleSequence, update.Sequence, last)
		}
	}

	if persist != nil {
		if err := persist(update); err != nil {
			return ApplyResult{}, fmt.Errorf("persist update: %w", err)
		}
	}

	led.accept(update)
	led.aggregate = b.aggregator.Aggregate(led.rubric, led.latest, update.SessionID, led.teamID, update.ServerTime)
	return ApplyResult{Accepted: true, Aggregate: led.aggregate}, nil
}

func (l *sessionLedger) accept(u models.ScoreUpdate) {
	key := seqKey{JudgeID: u.JudgeID, CriterionID: u.CriterionID}
	if last, seen := l.lastSeq[key]; seen && u.Sequence <= last {
		return
	}
	l.lastSeq[key] = u.Sequence
	byJudge, ok := l.latest[u.CriterionID]
	if !ok {
		byJudge = make(map[int]models.JudgeScore)
		l.latest[u.CriterionID] = byJudge
	}
	byJudge[u.JudgeID] = models.JudgeScore{JudgeID: u.JudgeID, Value: u.Value, Sequence: u.Sequence}
}

// Aggregate returns the current projection for a session, or nil before
// the first accepted update.
func (b *Book) Aggregate(sessionID int) (*models.AggregatedScore, error) {
	led, err := b.ledger(sessionID)
	if err != nil {
		return nil, err
	}
	led.mu.Lock()
	defer led.mu.Unlock()
	return led.aggregate, nil
}

// Coverage checks the completion gate for a session.
func (b *Book) Coverage(sessionID int) error {
	led, err := b.ledger(sessionID)
	if err != nil {
		return err
	}
	led.mu.Lock()
	defer led.mu.Unlock()
	return CoverageError(led.rubric, led.latest)
}

// ResetCriterion re-opens one criterion for rescoring: accepted values
// for it are dropped from the projection (the persisted updates remain as
// audit) and the aggregate is recomputed.
func (b *Book) ResetCriterion(sessionID, criterionID int, now time.Time) (*models.AggregatedScore, error) {
	led, err := b.ledger(sessionID)
	if err != nil {
		return nil, err
	}
	led.mu.Lock()
	defer led.mu.Unlock()
	if led.finalized {
		return nil, ErrScoreFinalized
	}
	delete(led.latest, criterionID)
	led.aggregate = b.aggregator.Aggregate(led.rubric, led.latest, sessionID, led.teamID, now)
	return led.aggregate, nil
}

// Override pins a head-judge value on one criterion aggregate.
func (b *Book) Override(sessionID, criterionID int, value float64, now time.Time) (*models.AggregatedScore, error) {
	led, err := b.ledger(sessionID)
	if err != nil {
		return nil, err
	}
	led.mu.Lock()
	defer led.mu.Unlock()
	if led.finalized {
		return nil, ErrScoreFinalized
	}
	if led.aggregate == nil {
		led.aggregate = b.aggregator.Aggregate(led.rubric, led.latest, sessionID, led.teamID, now)
	}
	agg := led.aggregate
	for i := range agg.Criteria {
		if agg.Criteria[i].CriterionID == criterionID {
			v := value
			agg.Criteria[i].Override = &v
			agg.Criteria[i].RequiresReview = false
		}
	}
	recomputeTotals(led.rubric, agg)
	return agg, nil
}

// ClearReview marks one criterion as reviewed without changing values.
func (b *Book) ClearReview(sessionID, criterionID int) (*models.AggregatedScore, error) {
	led, err := b.ledger(sessionID)
	if err != nil {
		return nil, err
	}
	led.mu.Lock()
	defer led.mu.Unlock()
	if led.aggregate == nil {
		return nil, fmt.Errorf("session %d has no aggregate yet", sessionID)
	}
	for i := range led.aggregate.Criteria {
		if led.aggregate.Criteria[i].CriterionID == criterionID {
			led.aggregate.Criteria[i].RequiresReview = false
		}
	}
	refreshReviewFlag(led.aggregate)
	return led.aggregate, nil
}

// Finalize locks the aggregate; further updates are rejected.
func (b *Book) Finalize(sessionID int) (*models.AggregatedScore, error) {
	led, err := b.ledger(sessionID)
	if err != nil {
		return nil, err
	}
	led.mu.Lock()
	defer led.mu.Unlock()
	if led.aggregate == nil {
		return nil, fmt.Errorf("session %d has no aggregate to finalize", sessionID)
	}
	led.finalized = true
	led.aggregate.Finalized = true
	return led.aggregate, nil
}

func recomputeTotals(rubric *models.Rubric, agg *models.AggregatedScore) {
	agg.Total = 0
	for _, ca := range agg.Criteria {
		criterion, ok := rubric.CriterionByID(ca.CriterionID)
		weight := 1.0
		if ok && criterion.Weight != 0 {
			weight = criterion.Weight
		}
		agg.Total += ca.EffectiveValue() * weight
	}
	if agg.MaxPossible > 0 {
		agg.Normalized = agg.Total / agg.MaxPossible * 100
	}
	refreshReviewFlag(agg)
}

func refreshReviewFlag(agg *models.AggregatedScore) {
	agg.RequiresReview = false
	for _, ca := range agg.Criteria {
		if ca.RequiresReview {
			agg.RequiresReview = true
			return
		}
	}
}
