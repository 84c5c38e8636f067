package models

import (
	"time"

	"github.com/google/uuid"
)

// AggregationMethod selects how per-judge values combine into one
// criterion aggregate.
type AggregationMethod string

const (
	AggregateAverage     AggregationMethod = "average"
	AggregateMedian      AggregationMethod = "median"
	AggregateTrimmedMean AggregationMethod = "trimmed_mean"
	AggregateHighest     AggregationMethod = "highest"
	AggregateConsensus   AggregationMethod = "consensus"
)

// ScoreUpdate is one judge's value for one criterion. Updates are
// immutable once accepted; a correction is a new update with a higher
// sequence number for the same (judge, criterion) pair.
type ScoreUpdate struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SessionID   int       `json:"session_id" db:"session_id"`
	JudgeID     int       `json:"judge_id" db:"judge_id"`
	CriterionID int       `json:"criterion_id" db:"criterion_id"`
	Value       float64   `json:"value" db:"value"`
	Sequence    int64     `json:"sequence" db:"sequence"`
	ClientTime  time.Time `json:"client_time" db:"client_time"`
	ServerTime  time.Time `json:"server_time" db:"server_time"`
}

// JudgeScore is the latest accepted value from one judge for one
// criterion; retained on the aggregate for audit.
type JudgeScore struct {
	JudgeID  int     `json:"judge_id"`
	Value    float64 `json:"value"`
	Sequence int64   `json:"sequence"`
}

// CriterionAggregate is the combined result for one criterion.
type CriterionAggregate struct {
	CriterionID    int               `json:"criterion_id"`
	Method         AggregationMethod `json:"method"`
	Value          float64           `json:"value"`
	Variance       float64           `json:"variance"`
	RawScores      []JudgeScore      `json:"raw_scores"`
	OutlierJudges  []int             `json:"outlier_judges,omitempty"`
	RequiresReview bool              `json:"requires_review"`

	// Override is set when a head judge replaced the computed value.
	Override *float64 `json:"override,omitempty"`
}

// EffectiveValue is the override when present, otherwise the computed
// aggregate.
func (c *CriterionAggregate) EffectiveValue() float64 {
	if c.Override != nil {
		return *c.Override
	}
	return c.Value
}

// AggregatedScore is the computed result for a (team, session) pair. It is
// a projection: recomputed deterministically whenever the underlying
// ScoreUpdate set changes, never mutated in place. Once finalized it is an
// immutable input to standings.
type AggregatedScore struct {
	SessionID int               `json:"session_id" db:"session_id"`
	TeamID    int               `json:"team_id" db:"team_id"`
	Method    AggregationMethod `json:"method" db:"method"`

	Criteria    []CriterionAggregate `json:"criteria"`
	Total       float64              `json:"total" db:"total"`
	MaxPossible float64              `json:"max_possible" db:"max_possible"`
	Normalized  float64              `json:"normalized" db:"normalized"`

	RequiresReview bool `json:"requires_review" db:"requires_review"`
	Finalized      bool `json:"finalized" db:"finalized"`

	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}

// Redacted returns a spectator view of the aggregate with per-judge raw
// scores and outlier identities stripped.
func (a *AggregatedScore) Redacted() *AggregatedScore {
	out := *a
	out.Criteria = make([]CriterionAggregate, len(a.Criteria))
	for i, c := range a.Criteria {
		rc := c
		rc.RawScores = nil
		rc.OutlierJudges = nil
		out.Criteria[i] = rc
	}
	return &out
}
