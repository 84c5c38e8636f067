package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/robonova/competition-core/models"
)

var ErrStandingNotFound = errors.New("standing not found")

type StandingRepository interface {
	Upsert(ctx context.Context, exec SQLExecutor, s *models.Standing) error
	GetByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Standing, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, limit, offset int) ([]*models.Standing, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const standingColumns = `id, tournament_id, team_id, points, games_played, wins, losses, draws,
	score_for, score_against, total_score, rank, updated_at`

func (r *postgresStandingRepository) Upsert(ctx context.Context, exec SQLExecutor, s *models.Standing) error {
	query := `
		INSERT INTO standings
			(tournament_id, team_id, points, games_played, wins, losses, draws,
			 score_for, score_against, total_score, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tournament_id, team_id) DO UPDATE SET
			points = EXCLUDED.points,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			score_for = EXCLUDED.score_for,
			score_against = EXCLUDED.score_against,
			total_score = EXCLUDED.total_score,
			rank = EXCLUDED.rank,
			updated_at = EXCLUDED.updated_at
		RETURNING id`
	return r.getExecutor(exec).QueryRowContext(ctx, query,
		s.TournamentID, s.TeamID, s.Points, s.GamesPlayed, s.Wins, s.Losses, s.Draws,
		s.ScoreFor, s.ScoreAgainst, s.TotalScore, s.Rank, s.UpdatedAt,
	).Scan(&s.ID)
}

func (r *postgresStandingRepository) GetByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Standing, error) {
	query := `SELECT ` + standingColumns + ` FROM standings WHERE tournament_id = $1 AND team_id = $2`
	var s models.Standing
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, teamID).Scan(
		&s.ID, &s.TournamentID, &s.TeamID, &s.Points, &s.GamesPlayed, &s.Wins, &s.Losses, &s.Draws,
		&s.ScoreFor, &s.ScoreAgainst, &s.TotalScore, &s.Rank, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresStandingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, limit, offset int) ([]*models.Standing, error) {
	query := `SELECT ` + standingColumns + `
		FROM standings
		WHERE tournament_id = $1
		ORDER BY rank NULLS LAST, points DESC, total_score DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.Standing, 0)
	for rows.Next() {
		var s models.Standing
		errScan := rows.Scan(
			&s.ID, &s.TournamentID, &s.TeamID, &s.Points, &s.GamesPlayed, &s.Wins, &s.Losses, &s.Draws,
			&s.ScoreFor, &s.ScoreAgainst, &s.TotalScore, &s.Rank, &s.UpdatedAt)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, &s)
	}
	return standings, rows.Err()
}
