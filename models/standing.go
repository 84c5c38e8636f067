package models

import "time"

// Standing is the read-mostly ranking projection per (tournament, team).
// It feeds back into seeding for subsequent phases.
type Standing struct {
	ID           int `json:"id" db:"id"`
	TournamentID int `json:"tournament_id" db:"tournament_id"`
	TeamID       int `json:"team_id" db:"team_id"`

	Points      int `json:"points" db:"points"`
	GamesPlayed int `json:"games_played" db:"games_played"`
	Wins        int `json:"wins" db:"wins"`
	Losses      int `json:"losses" db:"losses"`
	Draws       int `json:"draws" db:"draws"`

	// ScoreFor/Against come from match scores; TotalScore is the sum of
	// finalized session aggregates, used as the primary ranking key for
	// judged categories.
	ScoreFor     float64 `json:"score_for" db:"score_for"`
	ScoreAgainst float64 `json:"score_against" db:"score_against"`
	TotalScore   float64 `json:"total_score" db:"total_score"`

	Rank      *int      `json:"rank,omitempty" db:"rank"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ScoreDifference is the match score differential.
func (s *Standing) ScoreDifference() float64 {
	return s.ScoreFor - s.ScoreAgainst
}
