package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/robonova/competition-core/models"
)

var ErrSessionNotFound = errors.New("live scoring session not found")

type SessionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, s *models.LiveScoringSession) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.LiveScoringSession, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.LiveScoringSession, error)
	ListByStatus(ctx context.Context, exec SQLExecutor, status models.SessionStatus) ([]*models.LiveScoringSession, error)
	Update(ctx context.Context, exec SQLExecutor, s *models.LiveScoringSession) error
	TouchActivity(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
}

type postgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const sessionColumns = `id, tournament_id, category_id, match_id, team_id, status,
	scheduled_at, started_at, completed_at, last_activity_at,
	pause_reason, cancel_reason, canceled_by`

func (r *postgresSessionRepository) Create(ctx context.Context, exec SQLExecutor, s *models.LiveScoringSession) error {
	query := `
		INSERT INTO live_scoring_sessions
			(tournament_id, category_id, match_id, team_id, status, scheduled_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	return r.getExecutor(exec).QueryRowContext(ctx, query,
		s.TournamentID, s.CategoryID, s.MatchID, s.TeamID, s.Status, s.ScheduledAt, s.LastActivityAt,
	).Scan(&s.ID)
}

func (r *postgresSessionRepository) scan(row interface{ Scan(...interface{}) error }) (*models.LiveScoringSession, error) {
	var s models.LiveScoringSession
	err := row.Scan(
		&s.ID, &s.TournamentID, &s.CategoryID, &s.MatchID, &s.TeamID, &s.Status,
		&s.ScheduledAt, &s.StartedAt, &s.CompletedAt, &s.LastActivityAt,
		&s.PauseReason, &s.CancelReason, &s.CanceledBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresSessionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.LiveScoringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM live_scoring_sessions WHERE id = $1`
	return r.scan(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresSessionRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.LiveScoringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM live_scoring_sessions WHERE tournament_id = $1 ORDER BY scheduled_at`
	return r.list(ctx, exec, query, tournamentID)
}

func (r *postgresSessionRepository) ListByStatus(ctx context.Context, exec SQLExecutor, status models.SessionStatus) ([]*models.LiveScoringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM live_scoring_sessions WHERE status = $1 ORDER BY last_activity_at`
	return r.list(ctx, exec, query, status)
}

func (r *postgresSessionRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.LiveScoringSession, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*models.LiveScoringSession, 0)
	for rows.Next() {
		s, errScan := r.scan(rows)
		if errScan != nil {
			return nil, errScan
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *postgresSessionRepository) Update(ctx context.Context, exec SQLExecutor, s *models.LiveScoringSession) error {
	query := `
		UPDATE live_scoring_sessions SET
			status = $1, started_at = $2, completed_at = $3, last_activity_at = $4,
			pause_reason = $5, cancel_reason = $6, canceled_by = $7
		WHERE id = $8`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		s.Status, s.StartedAt, s.CompletedAt, s.LastActivityAt,
		s.PauseReason, s.CancelReason, s.CanceledBy, s.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSessionNotFound)
}

func (r *postgresSessionRepository) TouchActivity(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE live_scoring_sessions SET last_activity_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSessionNotFound)
}
