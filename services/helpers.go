package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/robonova/competition-core/models"
)

// Legal tournament status transitions. There is no path back: structure
// is append-only once a tournament goes active.
var tournamentTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.TournamentSetup:   {models.TournamentSeeding},
	models.TournamentSeeding: {models.TournamentActive, models.TournamentSetup},
	models.TournamentActive:  {models.TournamentCompleted},
}

func canTransitionTournament(from, to models.TournamentStatus) bool {
	for _, allowed := range tournamentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// withTransaction runs fn inside a transaction, committing on nil and
// rolling back otherwise.
func withTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func intPtr(v int) *int { return &v }
