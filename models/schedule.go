package models

import "time"

// Venue is a physical location with numbered tables/arenas.
type Venue struct {
	ID     int    `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Tables int    `json:"tables" db:"tables"`
}

// TimeSlot is a half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start" db:"slot_start"`
	End   time.Time `json:"end" db:"slot_end"`
}

// Overlaps reports whether two slots intersect.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// ScheduledMatch binds a match to a venue table and time slot with an
// assigned judge panel.
type ScheduledMatch struct {
	ID           int      `json:"id" db:"id"`
	MatchID      int      `json:"match_id" db:"match_id"`
	TournamentID int      `json:"tournament_id" db:"tournament_id"`
	VenueID      int      `json:"venue_id" db:"venue_id"`
	TableNumber  int      `json:"table_number" db:"table_number"`
	Slot         TimeSlot `json:"slot"`
	JudgePanel   []int    `json:"judge_panel"`
	Confirmed    bool     `json:"confirmed" db:"confirmed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
