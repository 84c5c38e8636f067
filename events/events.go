package events

import "encoding/json"

// Watermill topics. Deltas feed the broadcast hub; notifications feed the
// external notifier.
const (
	TopicDeltas        = "live.deltas"
	TopicNotifications = "notify.events"
)

// Delta event kinds, as seen by real-time clients.
const (
	KindScoreAccepted       = "score_accepted"
	KindAggregateRecomputed = "aggregate_recomputed"
	KindSessionState        = "session_state"
	KindMatchCompleted      = "match_completed"
	KindStandingsUpdated    = "standings_updated"
	KindConflictFlagged     = "conflict_flagged"
	KindConflictResolved    = "conflict_resolved"
)

// Notification kinds handed to the external notification service.
const (
	NotifyMatchReady             = "match_ready"
	NotifySessionCompleted       = "session_completed"
	NotifySessionIdlePaused      = "session_idle_paused"
	NotifyConflictRequiresReview = "conflict_requires_review"
)

// Delta is one state change bound for a hub topic. Redacted, when set, is
// the spectator-safe variant of the payload.
type Delta struct {
	Topic    string          `json:"topic"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	Redacted json.RawMessage `json:"redacted,omitempty"`
}

// Notification is an outbound event; the external notifier turns it into
// email/SMS, never the core.
type Notification struct {
	Kind         string `json:"kind"`
	TournamentID int    `json:"tournament_id"`
	SessionID    int    `json:"session_id,omitempty"`
	MatchID      int    `json:"match_id,omitempty"`
	Detail       string `json:"detail,omitempty"`
}
