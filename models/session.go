package models

import "time"

// SessionStatus matches the live_scoring_sessions status ENUM.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// LiveScoringSession is the bounded window during which judges score one
// team (or one side of a match) in one category. There is no transition
// back to scheduled once a session has been opened.
type LiveScoringSession struct {
	ID           int           `json:"id" db:"id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	CategoryID   int           `json:"category_id" db:"category_id"`
	MatchID      *int          `json:"match_id,omitempty" db:"match_id"`
	TeamID       int           `json:"team_id" db:"team_id"`
	Status       SessionStatus `json:"status" db:"status"`

	ScheduledAt    time.Time  `json:"scheduled_at" db:"scheduled_at"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`

	// PauseReason is set when the session was suspended, either by an
	// operator or by the idle sweeper.
	PauseReason *string `json:"pause_reason,omitempty" db:"pause_reason"`

	// CancelReason and CanceledBy record an early close; closing early is
	// an audited, role-gated operation.
	CancelReason *string `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CanceledBy   *int    `json:"canceled_by,omitempty" db:"canceled_by"`
}
