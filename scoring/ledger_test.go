package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
)

func newTestBook() *Book {
	return NewBook(&Aggregator{Method: models.AggregateAverage, ConflictThresholdPercent: 100})
}

func update(sessionID, judgeID, criterionID int, value float64, seq int64) models.ScoreUpdate {
	return models.ScoreUpdate{
		ID:          uuid.New(),
		SessionID:   sessionID,
		JudgeID:     judgeID,
		CriterionID: criterionID,
		Value:       value,
		Sequence:    seq,
		ServerTime:  time.Now(),
	}
}

func TestApplyAcceptsAndRecomputes(t *testing.T) {
	b := newTestBook()
	b.Open(1, 9, rubricOneCriterion(10), nil)

	res, err := b.Apply(update(1, 1, 1, 6, 1), nil)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.False(t, res.Idempotent)
	require.InDelta(t, 6.0, res.Aggregate.Total, 1e-9)

	res, err = b.Apply(update(1, 2, 1, 8, 1), nil)
	require.NoError(t, err)
	require.InDelta(t, 7.0, res.Aggregate.Total, 1e-9)

	// A higher sequence from the same judge replaces the earlier value.
	res, err = b.Apply(update(1, 1, 1, 10, 2), nil)
	require.NoError(t, err)
	require.InDelta(t, 9.0, res.Aggregate.Total, 1e-9)
}

func TestApplyIdempotentResubmission(t *testing.T) {
	b := newTestBook()
	b.Open(1, 9, rubricOneCriterion(10), nil)

	first, err := b.Apply(update(1, 1, 1, 6, 1), nil)
	require.NoError(t, err)

	// Same (judge, criterion, sequence): accepted again without a
	// recompute or double count.
	again, err := b.Apply(update(1, 1, 1, 6, 1), nil)
	require.NoError(t, err)
	require.True(t, again.Accepted)
	require.True(t, again.Idempotent)
	require.Equal(t, first.Aggregate, again.Aggregate)
}

func TestApplyPersistsBeforeAccepting(t *testing.T) {
	b := newTestBook()
	b.Open(1, 9, rubricOneCriterion(10), nil)

	var stored []models.ScoreUpdate
	keep := func(u models.ScoreUpdate) error {
		stored = append(stored, u)
		return nil
	}

	// A failed append keeps no ledger state: the sequence is not burned.
	_, err := b.Apply(update(1, 1, 1, 6, 1), func(models.ScoreUpdate) error {
		return errors.New("connection refused")
	})
	require.Error(t, err)
	agg, err := b.Aggregate(1)
	require.NoError(t, err)
	require.Nil(t, agg)

	// The retry of the same (judge, criterion, sequence) is a fresh
	// accept that reaches the store, not an idempotent short-circuit.
	res, err := b.Apply(update(1, 1, 1, 6, 1), keep)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.False(t, res.Idempotent)
	require.Len(t, stored, 1)

	// An idempotent resubmission never appends a second row.
	res, err = b.Apply(update(1, 1, 1, 6, 1), keep)
	require.NoError(t, err)
	require.True(t, res.Idempotent)
	require.Len(t, stored, 1)
}

func TestApplyRejections(t *testing.T) {
	b := newTestBook()
	b.Open(1, 9, rubricOneCriterion(10), nil)
	_, err := b.Apply(update(1, 1, 1, 6, 5), nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		update  models.ScoreUpdate
		wantErr error
	}{
		{"stale sequence", update(1, 1, 1, 4, 3), ErrStaleSequence},
		{"value above max", update(1, 1, 1, 11, 6), ErrValueOutOfRange},
		{"value below min", update(1, 1, 1, -1, 6), ErrValueOutOfRange},
		{"unknown criterion", update(1, 1, 99, 5, 6), ErrUnknownCriterion},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Apply(tc.update, nil)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err = b.Apply(update(2, 1, 1, 5, 1), nil)
	require.Error(t, err, "session without an open ledger")
}

func TestOpenSeedsFromPersistedUpdates(t *testing.T) {
	b := newTestBook()
	seed := []models.ScoreUpdate{
		update(1, 1, 1, 6, 1),
		update(1, 1, 1, 8, 2),
		update(1, 2, 1, 4, 1),
	}
	b.Open(1, 9, rubricOneCriterion(10), seed)

	agg, err := b.Aggregate(1)
	require.NoError(t, err)
	require.NotNil(t, agg)
	require.InDelta(t, 6.0, agg.Total, 1e-9)

	// Sequence rules hold across the restart: the replayed head is still
	// the high-water mark.
	_, err = b.Apply(update(1, 1, 1, 5, 1), nil)
	require.ErrorIs(t, err, ErrStaleSequence)

	// Opening again is a no-op.
	b.Open(1, 9, rubricOneCriterion(10), nil)
	agg, err = b.Aggregate(1)
	require.NoError(t, err)
	require.InDelta(t, 6.0, agg.Total, 1e-9)
}

func TestFinalizeLocksSession(t *testing.T) {
	b := newTestBook()
	b.Open(1, 9, rubricOneCriterion(10), nil)
	_, err := b.Apply(update(1, 1, 1, 6, 1), nil)
	require.NoError(t, err)

	agg, err := b.Finalize(1)
	require.NoError(t, err)
	require.True(t, agg.Finalized)

	_, err = b.Apply(update(1, 2, 1, 8, 1), nil)
	require.ErrorIs(t, err, ErrScoreFinalized)
	_, err = b.ResetCriterion(1, 1, time.Now())
	require.ErrorIs(t, err, ErrScoreFinalized)
	_, err = b.Override(1, 1, 5, time.Now())
	require.ErrorIs(t, err, ErrScoreFinalized)
}

func TestFinalizeRequiresAnAggregate(t *testing.T) {
	b := newTestBook()
	b.Open(1, 9, rubricOneCriterion(10), nil)
	_, err := b.Finalize(1)
	require.Error(t, err)
}

func TestResetCriterionDropsValues(t *testing.T) {
	rubric := &models.Rubric{
		Criteria: []models.Criterion{
			{ID: 1, MaxValue: 10},
			{ID: 2, MaxValue: 10},
		},
	}
	b := newTestBook()
	b.Open(1, 9, rubric, nil)
	_, err := b.Apply(update(1, 1, 1, 6, 1), nil)
	require.NoError(t, err)
	_, err = b.Apply(update(1, 1, 2, 8, 1), nil)
	require.NoError(t, err)

	agg, err := b.ResetCriterion(1, 1, time.Now())
	require.NoError(t, err)
	require.Len(t, agg.Criteria, 1)
	require.Equal(t, 2, agg.Criteria[0].CriterionID)
	require.InDelta(t, 8.0, agg.Total, 1e-9)

	// The criterion is open for fresh submissions.
	res, err := b.Apply(update(1, 1, 1, 9, 2), nil)
	require.NoError(t, err)
	require.InDelta(t, 17.0, res.Aggregate.Total, 1e-9)
}

func TestOverridePinsCriterionValue(t *testing.T) {
	b := NewBook(&Aggregator{Method: models.AggregateAverage, ConflictThresholdPercent: 10})
	b.Open(1, 9, rubricOneCriterion(10), nil)
	_, err := b.Apply(update(1, 1, 1, 2, 1), nil)
	require.NoError(t, err)
	res, err := b.Apply(update(1, 2, 1, 9, 1), nil)
	require.NoError(t, err)
	require.True(t, res.Aggregate.RequiresReview)

	agg, err := b.Override(1, 1, 7, time.Now())
	require.NoError(t, err)
	require.NotNil(t, agg.Criteria[0].Override)
	require.InDelta(t, 7.0, agg.Criteria[0].EffectiveValue(), 1e-9)
	require.InDelta(t, 7.0, agg.Total, 1e-9)
	require.InDelta(t, 70.0, agg.Normalized, 1e-9)
	require.False(t, agg.RequiresReview)
}

func TestClearReview(t *testing.T) {
	b := NewBook(&Aggregator{Method: models.AggregateAverage, ConflictThresholdPercent: 10})
	b.Open(1, 9, rubricOneCriterion(10), nil)
	_, err := b.Apply(update(1, 1, 1, 2, 1), nil)
	require.NoError(t, err)
	res, err := b.Apply(update(1, 2, 1, 9, 1), nil)
	require.NoError(t, err)
	require.True(t, res.Aggregate.RequiresReview)

	agg, err := b.ClearReview(1, 1)
	require.NoError(t, err)
	require.False(t, agg.Criteria[0].RequiresReview)
	require.False(t, agg.RequiresReview)
	// The computed value is untouched.
	require.InDelta(t, 5.5, agg.Criteria[0].Value, 1e-9)
}

func TestCloseDropsLedger(t *testing.T) {
	b := newTestBook()
	b.Open(1, 9, rubricOneCriterion(10), nil)
	b.Close(1)
	_, err := b.Aggregate(1)
	require.Error(t, err)
}

func TestCoverageGate(t *testing.T) {
	rubric := rubricOneCriterion(10)
	rubric.MinSubmissionsPerCriterion = 2
	b := newTestBook()
	b.Open(1, 9, rubric, nil)

	_, err := b.Apply(update(1, 1, 1, 6, 1), nil)
	require.NoError(t, err)
	require.Error(t, b.Coverage(1))

	_, err = b.Apply(update(1, 2, 1, 7, 1), nil)
	require.NoError(t, err)
	require.NoError(t, b.Coverage(1))
}
