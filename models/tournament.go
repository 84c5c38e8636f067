package models

import "time"

// TournamentFormat matches the format ENUM in the DB.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSwiss             TournamentFormat = "swiss"
)

// TournamentStatus matches the status ENUM in the DB.
type TournamentStatus string

const (
	TournamentSetup     TournamentStatus = "setup"
	TournamentSeeding   TournamentStatus = "seeding"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament owns its brackets, schedule and seeding exclusively.
// Structural data is append-only once the status reaches active.
type Tournament struct {
	ID               int              `json:"id" db:"id"`
	CategoryID       int              `json:"category_id" db:"category_id"`
	Name             string           `json:"name" db:"name"`
	Format           TournamentFormat `json:"format" db:"format"`
	AdvancementCount int              `json:"advancement_count" db:"advancement_count"`
	Status           TournamentStatus `json:"status" db:"status"`

	// Scoring policy for sessions belonging to this tournament.
	AggregationMethod        AggregationMethod `json:"aggregation_method" db:"aggregation_method"`
	ConflictThresholdPercent float64           `json:"conflict_threshold_percent" db:"conflict_threshold_percent"`
	AutoResolveConflicts     bool              `json:"auto_resolve_conflicts" db:"auto_resolve_conflicts"`
	PublicRawScores          bool              `json:"public_raw_scores" db:"public_raw_scores"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Optional linked data, populated by services, not mapped directly.
	Seedings  []Seeding `json:"seedings,omitempty" db:"-"`
	Matches   []Match   `json:"matches,omitempty" db:"-"`
	Standings []Standing `json:"standings,omitempty" db:"-"`
}
