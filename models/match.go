package models

import "time"

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchReady      MatchStatus = "ready"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchForfeit    MatchStatus = "forfeit"
	MatchBye        MatchStatus = "bye"
)

type BracketType string

const (
	BracketWinners     BracketType = "winners"
	BracketLosers      BracketType = "losers"
	BracketConsolation BracketType = "consolation"
	BracketGrandFinal  BracketType = "grand_final"
	// BracketNone is used by round-robin and swiss schedules, which have
	// rounds but no bracket tree.
	BracketNone BracketType = ""
)

// Match is one node of a tournament graph. An empty team slot is either a
// bye or a placeholder for the winner/loser of an earlier match.
//
// Invariant: a match must be resolved (WinnerID set) before the match at
// NextMatchID may start, and a team occupies at most one unresolved match
// at a time.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	BracketUID   *string     `json:"bracket_uid,omitempty" db:"bracket_uid"`
	BracketType  BracketType `json:"bracket_type" db:"bracket_type"`
	Round        int         `json:"round" db:"round"`
	OrderInRound int         `json:"order_in_round" db:"order_in_round"`

	Team1ID *int `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID *int `json:"team2_id,omitempty" db:"team2_id"`

	Score1 *float64 `json:"score1,omitempty" db:"score1"`
	Score2 *float64 `json:"score2,omitempty" db:"score2"`

	WinnerID *int `json:"winner_id,omitempty" db:"winner_id"`
	LoserID  *int `json:"loser_id,omitempty" db:"loser_id"`

	// Forward pointer: the match the winner advances to, and which of its
	// two slots the winner occupies.
	NextMatchID   *int `json:"next_match_id,omitempty" db:"next_match_id"`
	NextMatchSlot *int `json:"next_match_slot,omitempty" db:"next_match_slot"`

	// Double elimination only: where the loser drops to.
	LoserNextMatchID   *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`
	LoserNextMatchSlot *int `json:"loser_next_match_slot,omitempty" db:"loser_next_match_slot"`

	Status      MatchStatus `json:"status" db:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// Resolved reports whether the match produced a winner (including byes and
// forfeits).
func (m *Match) Resolved() bool {
	return m.WinnerID != nil
}

// HasTeam reports whether the given team occupies either slot.
func (m *Match) HasTeam(teamID int) bool {
	return (m.Team1ID != nil && *m.Team1ID == teamID) || (m.Team2ID != nil && *m.Team2ID == teamID)
}
