package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/robonova/competition-core/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, m *models.Match) error
	UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, bracket_uid, bracket_type, round, order_in_round,
	team1_id, team2_id, score1, score2, winner_id, loser_id,
	next_match_id, next_match_slot, loser_next_match_id, loser_next_match_slot,
	status, started_at, completed_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, bracket_uid, bracket_type, round, order_in_round,
			 team1_id, team2_id, winner_id, loser_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	return r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID, m.BracketUID, m.BracketType, m.Round, m.OrderInRound,
		m.Team1ID, m.Team2ID, m.WinnerID, m.LoserID, m.Status,
	).Scan(&m.ID)
}

func (r *postgresMatchRepository) scan(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.BracketUID, &m.BracketType, &m.Round, &m.OrderInRound,
		&m.Team1ID, &m.Team2ID, &m.Score1, &m.Score2, &m.WinnerID, &m.LoserID,
		&m.NextMatchID, &m.NextMatchSlot, &m.LoserNextMatchID, &m.LoserNextMatchSlot,
		&m.Status, &m.StartedAt, &m.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scan(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if round != nil {
		query += ` AND round = $2`
		args = append(args, *round)
	}
	query += ` ORDER BY bracket_type, round, order_in_round`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, errScan := r.scan(rows)
		if errScan != nil {
			return nil, errScan
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches SET
			team1_id = $1, team2_id = $2, score1 = $3, score2 = $4,
			winner_id = $5, loser_id = $6, status = $7, started_at = $8, completed_at = $9
		WHERE id = $10`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		m.Team1ID, m.Team2ID, m.Score1, m.Score2,
		m.WinnerID, m.LoserID, m.Status, m.StartedAt, m.CompletedAt, m.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	query := `
		UPDATE matches SET
			next_match_id = $1, next_match_slot = $2,
			loser_next_match_id = $3, loser_next_match_slot = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextID, nextSlot, loserNextID, loserNextSlot, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
