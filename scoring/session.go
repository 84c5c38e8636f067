package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/robonova/competition-core/models"
)

var (
	ErrInvalidStateTransition = errors.New("invalid session state transition")
	ErrMatchNotReady          = errors.New("session match is not ready")
)

// sessionTransitions mirrors the session lifecycle: scheduled -> active
// -> paused -> completed, with active <-> paused and no way back to
// scheduled.
var sessionTransitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionScheduled: {models.SessionActive},
	models.SessionActive:    {models.SessionPaused, models.SessionCompleted},
	models.SessionPaused:    {models.SessionActive, models.SessionCompleted},
	models.SessionCompleted: {},
}

// CanTransition reports whether a session may move between two states.
func CanTransition(from, to models.SessionStatus) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a state change in place, stamping the relevant
// timestamps.
func Transition(sess *models.LiveScoringSession, to models.SessionStatus, now time.Time) error {
	if !CanTransition(sess.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, sess.Status, to)
	}
	switch to {
	case models.SessionActive:
		if sess.StartedAt == nil {
			t := now
			sess.StartedAt = &t
		}
		sess.PauseReason = nil
	case models.SessionCompleted:
		t := now
		sess.CompletedAt = &t
	}
	sess.Status = to
	sess.LastActivityAt = now
	return nil
}

// Pause suspends an active session with a reason (device outage, dispute,
// idle timeout). Advisory: no data is discarded.
func Pause(sess *models.LiveScoringSession, reason string, now time.Time) error {
	if err := Transition(sess, models.SessionPaused, now); err != nil {
		return err
	}
	sess.PauseReason = &reason
	return nil
}
