package models

import "time"

// SeedSource records where a seed number came from. Manual overrides
// always win over derived sources.
type SeedSource string

const (
	SeedSourcePriorPlacement SeedSource = "prior_placement"
	SeedSourceQualification  SeedSource = "qualification"
	SeedSourceManual         SeedSource = "manual"
	SeedSourceDraw           SeedSource = "draw"
)

// Seeding is unique per (tournament, team) and per (tournament, seed_number).
type Seeding struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	TeamID       int        `json:"team_id" db:"team_id"`
	SeedNumber   int        `json:"seed_number" db:"seed_number"`
	Source       SeedSource `json:"source" db:"source"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
