package models

import "time"

// ConflictKind says why an aggregate was flagged.
type ConflictKind string

const (
	ConflictVariance  ConflictKind = "variance"
	ConflictOutlier   ConflictKind = "outlier"
	ConflictConsensus ConflictKind = "consensus"
)

// ConflictStatus tracks the review lifecycle of a flagged criterion.
type ConflictStatus string

const (
	ConflictOpen         ConflictStatus = "open"
	ConflictAutoResolved ConflictStatus = "auto_resolved"
	ConflictResolved     ConflictStatus = "resolved"
)

// ResolutionAction is what the head judge decided.
type ResolutionAction string

const (
	ResolutionAccept   ResolutionAction = "accept_aggregate"
	ResolutionOverride ResolutionAction = "override"
	ResolutionRescore  ResolutionAction = "rescore"
)

// ScoreConflict is a routed review item, not an error. It is raised by the
// aggregator and consumed by the conflict resolver.
type ScoreConflict struct {
	ID           int            `json:"id" db:"id"`
	SessionID    int            `json:"session_id" db:"session_id"`
	CriterionID  int            `json:"criterion_id" db:"criterion_id"`
	Kind         ConflictKind   `json:"kind" db:"kind"`
	JudgeID      *int           `json:"judge_id,omitempty" db:"judge_id"`
	Deviation    float64        `json:"deviation" db:"deviation"`
	Status       ConflictStatus `json:"status" db:"status"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	Resolution   *ConflictResolution `json:"resolution,omitempty" db:"-"`
}

// ConflictResolution is the audited record of how a conflict was closed.
type ConflictResolution struct {
	ResolverID    int              `json:"resolver_id" db:"resolver_id"`
	Action        ResolutionAction `json:"action" db:"action"`
	OverrideValue *float64         `json:"override_value,omitempty" db:"override_value"`
	Rationale     string           `json:"rationale" db:"rationale"`
	ResolvedAt    time.Time        `json:"resolved_at" db:"resolved_at"`
}
