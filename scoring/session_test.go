package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.SessionStatus
		want     bool
	}{
		{models.SessionScheduled, models.SessionActive, true},
		{models.SessionScheduled, models.SessionPaused, false},
		{models.SessionScheduled, models.SessionCompleted, false},
		{models.SessionActive, models.SessionPaused, true},
		{models.SessionActive, models.SessionCompleted, true},
		{models.SessionActive, models.SessionScheduled, false},
		{models.SessionPaused, models.SessionActive, true},
		{models.SessionPaused, models.SessionCompleted, true},
		{models.SessionPaused, models.SessionScheduled, false},
		{models.SessionCompleted, models.SessionActive, false},
		{models.SessionCompleted, models.SessionPaused, false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionStampsTimes(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	sess := &models.LiveScoringSession{Status: models.SessionScheduled}

	require.NoError(t, Transition(sess, models.SessionActive, now))
	require.Equal(t, models.SessionActive, sess.Status)
	require.NotNil(t, sess.StartedAt)
	require.Equal(t, now, *sess.StartedAt)
	require.Equal(t, now, sess.LastActivityAt)

	// StartedAt is only stamped once; a resume keeps the original.
	later := now.Add(10 * time.Minute)
	require.NoError(t, Pause(sess, "device outage", later))
	require.NoError(t, Transition(sess, models.SessionActive, later.Add(time.Minute)))
	require.Equal(t, now, *sess.StartedAt)
	require.Nil(t, sess.PauseReason)

	end := later.Add(time.Hour)
	require.NoError(t, Transition(sess, models.SessionCompleted, end))
	require.NotNil(t, sess.CompletedAt)
	require.Equal(t, end, *sess.CompletedAt)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	sess := &models.LiveScoringSession{Status: models.SessionCompleted}
	err := Transition(sess, models.SessionActive, time.Now())
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	require.Equal(t, models.SessionCompleted, sess.Status)
}

func TestPauseRecordsReason(t *testing.T) {
	now := time.Now()
	sess := &models.LiveScoringSession{Status: models.SessionActive}
	require.NoError(t, Pause(sess, "scoring dispute", now))
	require.Equal(t, models.SessionPaused, sess.Status)
	require.NotNil(t, sess.PauseReason)
	require.Equal(t, "scoring dispute", *sess.PauseReason)

	err := Pause(sess, "again", now)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}
