package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/robonova/competition-core/models"
)

var ErrSeedingNotFound = errors.New("seeding not found")

type SeedingRepository interface {
	ReplaceAll(ctx context.Context, exec SQLExecutor, tournamentID int, seeds []*models.Seeding) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Seeding, error)
	GetByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Seeding, error)
}

type postgresSeedingRepository struct {
	db *sql.DB
}

func NewPostgresSeedingRepository(db *sql.DB) SeedingRepository {
	return &postgresSeedingRepository{db: db}
}

func (r *postgresSeedingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceAll swaps the whole seeding set atomically. A reseed is only
// legal before the bracket exists, so wiping and reinserting is safe.
func (r *postgresSeedingRepository) ReplaceAll(ctx context.Context, exec SQLExecutor, tournamentID int, seeds []*models.Seeding) error {
	e := r.getExecutor(exec)
	if _, err := e.ExecContext(ctx, `DELETE FROM seedings WHERE tournament_id = $1`, tournamentID); err != nil {
		return err
	}
	query := `
		INSERT INTO seedings (tournament_id, team_id, seed_number, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	for _, s := range seeds {
		err := e.QueryRowContext(ctx, query, tournamentID, s.TeamID, s.SeedNumber, s.Source).
			Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresSeedingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Seeding, error) {
	query := `
		SELECT id, tournament_id, team_id, seed_number, source, created_at
		FROM seedings
		WHERE tournament_id = $1
		ORDER BY seed_number`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seeds := make([]*models.Seeding, 0)
	for rows.Next() {
		var s models.Seeding
		if errScan := rows.Scan(&s.ID, &s.TournamentID, &s.TeamID, &s.SeedNumber, &s.Source, &s.CreatedAt); errScan != nil {
			return nil, errScan
		}
		seeds = append(seeds, &s)
	}
	return seeds, rows.Err()
}

func (r *postgresSeedingRepository) GetByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Seeding, error) {
	query := `
		SELECT id, tournament_id, team_id, seed_number, source, created_at
		FROM seedings
		WHERE tournament_id = $1 AND team_id = $2`
	var s models.Seeding
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, teamID).
		Scan(&s.ID, &s.TournamentID, &s.TeamID, &s.SeedNumber, &s.Source, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeedingNotFound
		}
		return nil, err
	}
	return &s, nil
}
