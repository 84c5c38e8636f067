package services

import "errors"

// Sentinel errors shared across services and the HTTP mapping layer.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules.
	ErrValidationFailed       = errors.New("validation failed")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrUnknownFormat          = errors.New("unknown tournament format")
	ErrNotEnoughTeams         = errors.New("at least two teams are required")
	ErrRubricRequired         = errors.New("category has no rubric")

	// State machine violations.
	ErrInvalidStateTransition = errors.New("invalid status transition")
	ErrTournamentNotInSetup   = errors.New("tournament structure is frozen once active")
	ErrBracketAlreadyExists   = errors.New("bracket has already been generated")
	ErrMatchNotReady          = errors.New("match is not ready to start")
	ErrMatchAlreadyStarted    = errors.New("match has already started")
	ErrMatchNotResolved       = errors.New("match has no winner yet")
	ErrSessionNotActive       = errors.New("session is not accepting scores")
	ErrSessionNotCoverable    = errors.New("not every criterion has enough submissions")
	ErrScoreFinalized         = errors.New("aggregated score is finalized")

	// Scheduling.
	ErrSchedulingConflict    = errors.New("schedule change conflicts with existing assignments")
	ErrMatchAlreadyScheduled = errors.New("match already has a schedule assignment")

	// Authorization.
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrJudgeNotOnCategory = errors.New("judge is not assigned to this category")

	// Entity-specific not-found variants.
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrSessionNotFound    = errors.New("live scoring session not found")
	ErrConflictNotFound   = errors.New("score conflict not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrJudgeNotFound      = errors.New("judge not found")
	ErrVenueNotFound      = errors.New("venue not found")
)
