package services

import (
	"context"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/seeding"
)

// Team registration, judge assignment and rubric definitions live in the
// external registration service. These ports are what the core needs from
// it; implementations are provided at composition time.

// TeamRoster exposes the registered field for a tournament.
type TeamRoster interface {
	// Entrants returns seeding inputs for every registered team.
	Entrants(ctx context.Context, tournamentID int) ([]seeding.Input, error)
	TeamExists(ctx context.Context, teamID int) (bool, error)
}

// JudgeRoster exposes judge identities and their category assignments.
type JudgeRoster interface {
	Judge(ctx context.Context, judgeID int) (*models.Judge, error)
	AvailableAt(ctx context.Context, judgeID int, slot models.TimeSlot) (bool, error)
}

// RubricProvider exposes the scoring rubric per category.
type RubricProvider interface {
	Rubric(ctx context.Context, categoryID int) (*models.Rubric, error)
}

// Role is the caller's role as established by the auth middleware.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleHeadJudge Role = "head_judge"
	RoleJudge     Role = "judge"
	RoleSpectator Role = "spectator"
)
