package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/robonova/competition-core/models"
)

var (
	ErrScheduleNotFound = errors.New("scheduled match not found")
	ErrVenueNotFound    = errors.New("venue not found")
)

type ScheduleRepository interface {
	Create(ctx context.Context, exec SQLExecutor, s *models.ScheduledMatch) error
	GetByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.ScheduledMatch, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.ScheduledMatch, error)
	Confirm(ctx context.Context, exec SQLExecutor, id int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error

	CreateVenue(ctx context.Context, exec SQLExecutor, v *models.Venue) error
	ListVenues(ctx context.Context, exec SQLExecutor) ([]*models.Venue, error)
}

type postgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) ScheduleRepository {
	return &postgresScheduleRepository{db: db}
}

func (r *postgresScheduleRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const scheduleColumns = `id, match_id, tournament_id, venue_id, table_number,
	slot_start, slot_end, judge_panel, confirmed, created_at`

func (r *postgresScheduleRepository) Create(ctx context.Context, exec SQLExecutor, s *models.ScheduledMatch) error {
	query := `
		INSERT INTO scheduled_matches
			(match_id, tournament_id, venue_id, table_number, slot_start, slot_end, judge_panel, confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	return r.getExecutor(exec).QueryRowContext(ctx, query,
		s.MatchID, s.TournamentID, s.VenueID, s.TableNumber,
		s.Slot.Start, s.Slot.End, pq.Array(s.JudgePanel), s.Confirmed,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *postgresScheduleRepository) scan(row interface{ Scan(...interface{}) error }) (*models.ScheduledMatch, error) {
	var s models.ScheduledMatch
	var panel pq.Int64Array
	err := row.Scan(&s.ID, &s.MatchID, &s.TournamentID, &s.VenueID, &s.TableNumber,
		&s.Slot.Start, &s.Slot.End, &panel, &s.Confirmed, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	s.JudgePanel = make([]int, len(panel))
	for i, id := range panel {
		s.JudgePanel[i] = int(id)
	}
	return &s, nil
}

func (r *postgresScheduleRepository) GetByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.ScheduledMatch, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_matches WHERE match_id = $1`
	return r.scan(r.getExecutor(exec).QueryRowContext(ctx, query, matchID))
}

func (r *postgresScheduleRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.ScheduledMatch, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_matches WHERE tournament_id = $1 ORDER BY slot_start`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*models.ScheduledMatch, 0)
	for rows.Next() {
		s, errScan := r.scan(rows)
		if errScan != nil {
			return nil, errScan
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *postgresScheduleRepository) Confirm(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE scheduled_matches SET confirmed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrScheduleNotFound)
}

func (r *postgresScheduleRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`DELETE FROM scheduled_matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrScheduleNotFound)
}

func (r *postgresScheduleRepository) CreateVenue(ctx context.Context, exec SQLExecutor, v *models.Venue) error {
	query := `INSERT INTO venues (name, tables) VALUES ($1, $2) RETURNING id`
	return r.getExecutor(exec).QueryRowContext(ctx, query, v.Name, v.Tables).Scan(&v.ID)
}

func (r *postgresScheduleRepository) ListVenues(ctx context.Context, exec SQLExecutor) ([]*models.Venue, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, `SELECT id, name, tables FROM venues ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	venues := make([]*models.Venue, 0)
	for rows.Next() {
		var v models.Venue
		if errScan := rows.Scan(&v.ID, &v.Name, &v.Tables); errScan != nil {
			return nil, errScan
		}
		venues = append(venues, &v)
	}
	return venues, rows.Err()
}
