package scheduler

import (
	"fmt"
	"time"

	"github.com/robonova/competition-core/models"
)

type ConflictType string

const (
	ConflictTeamDoubleBooked   ConflictType = "team_double_booked"
	ConflictVenueDoubleBooked  ConflictType = "venue_double_booked"
	ConflictTableCapacity      ConflictType = "table_capacity"
	ConflictJudgeUnavailable   ConflictType = "judge_unavailable"
	ConflictInsufficientBuffer ConflictType = "insufficient_buffer"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Conflict is one typed finding from a validation pass. Conflicts are
// values, not errors; only critical ones block scheduling.
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity Severity     `json:"severity"`
	MatchID  int          `json:"match_id"`
	Detail   string       `json:"detail"`
}

// JudgeAvailability answers whether a judge can sit on a panel during a
// slot. Backed by the external roster service.
type JudgeAvailability interface {
	Available(judgeID int, slot models.TimeSlot) bool
}

// Scheduler validates venue/table/slot assignments for matches.
type Scheduler struct {
	// MinTeamBuffer is the minimum rest between a team's consecutive
	// matches, measured end-of-slot to start-of-slot.
	MinTeamBuffer time.Duration
}

func New(minTeamBuffer time.Duration) *Scheduler {
	return &Scheduler{MinTeamBuffer: minTeamBuffer}
}

// Validate checks a candidate assignment against already confirmed ones.
// The matches map supplies team slots for every involved match.
func (s *Scheduler) Validate(
	candidate models.ScheduledMatch,
	existing []models.ScheduledMatch,
	matches map[int]*models.Match,
	availability JudgeAvailability,
	venues map[int]*models.Venue,
) []Conflict {
	var conflicts []Conflict

	candMatch := matches[candidate.MatchID]
	if venue, ok := venues[candidate.VenueID]; ok {
		if candidate.TableNumber < 1 || candidate.TableNumber > venue.Tables {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictTableCapacity,
				Severity: SeverityCritical,
				MatchID:  candidate.MatchID,
				Detail:   fmt.Sprintf("venue %q has %d tables, requested table %d", venue.Name, venue.Tables, candidate.TableNumber),
			})
		}
	}

	for _, other := range existing {
		if other.MatchID == candidate.MatchID || !other.Confirmed {
			continue
		}
		overlaps := candidate.Slot.Overlaps(other.Slot)

		if overlaps && other.VenueID == candidate.VenueID && other.TableNumber == candidate.TableNumber {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictVenueDoubleBooked,
				Severity: SeverityCritical,
				MatchID:  candidate.MatchID,
				Detail:   fmt.Sprintf("venue %d table %d already holds match %d", other.VenueID, other.TableNumber, other.MatchID),
			})
		}

		otherMatch := matches[other.MatchID]
		if candMatch == nil || otherMatch == nil {
			continue
		}
		shared := sharedTeam(candMatch, otherMatch)
		if shared == 0 {
			continue
		}
		if overlaps {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictTeamDoubleBooked,
				Severity: SeverityCritical,
				MatchID:  candidate.MatchID,
				Detail:   fmt.Sprintf("team %d is already booked in match %d during this slot", shared, other.MatchID),
			})
		} else if s.MinTeamBuffer > 0 && gapBetween(candidate.Slot, other.Slot) < s.MinTeamBuffer {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictInsufficientBuffer,
				Severity: SeverityWarning,
				MatchID:  candidate.MatchID,
				Detail:   fmt.Sprintf("team %d has less than %s between matches %d and %d", shared, s.MinTeamBuffer, candidate.MatchID, other.MatchID),
			})
		}
	}

	if availability != nil {
		for _, judgeID := range candidate.JudgePanel {
			if !availability.Available(judgeID, candidate.Slot) {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictJudgeUnavailable,
					Severity: SeverityError,
					MatchID:  candidate.MatchID,
					Detail:   fmt.Sprintf("judge %d is not available for the requested slot", judgeID),
				})
			}
		}
	}

	return conflicts
}

// HasCritical reports whether any conflict blocks scheduling.
func HasCritical(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func sharedTeam(a, b *models.Match) int {
	for _, t := range []*int{a.Team1ID, a.Team2ID} {
		if t != nil && b.HasTeam(*t) {
			return *t
		}
	}
	return 0
}

func gapBetween(a, b models.TimeSlot) time.Duration {
	if a.Start.After(b.End) || a.Start.Equal(b.End) {
		return a.Start.Sub(b.End)
	}
	if b.Start.After(a.End) || b.Start.Equal(a.End) {
		return b.Start.Sub(a.End)
	}
	return 0
}
