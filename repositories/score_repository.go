package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/robonova/competition-core/models"
)

var (
	ErrScoreUpdateNotFound = errors.New("score update not found")
	ErrAggregateNotFound   = errors.New("aggregated score not found")
)

// ScoreRepository persists the append-only score update log and the
// aggregate projection computed from it. Updates are never updated or
// deleted; a correction is a new row with a higher sequence.
type ScoreRepository interface {
	AppendUpdate(ctx context.Context, exec SQLExecutor, u *models.ScoreUpdate) error
	ListUpdates(ctx context.Context, exec SQLExecutor, sessionID int) ([]*models.ScoreUpdate, error)
	UpsertAggregate(ctx context.Context, exec SQLExecutor, a *models.AggregatedScore) error
	GetAggregate(ctx context.Context, exec SQLExecutor, sessionID int) (*models.AggregatedScore, error)
	ListFinalizedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.AggregatedScore, error)
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresScoreRepository) AppendUpdate(ctx context.Context, exec SQLExecutor, u *models.ScoreUpdate) error {
	query := `
		INSERT INTO score_updates
			(id, session_id, judge_id, criterion_id, value, sequence, client_time, server_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		u.ID, u.SessionID, u.JudgeID, u.CriterionID, u.Value, u.Sequence, u.ClientTime, u.ServerTime)
	return err
}

func (r *postgresScoreRepository) ListUpdates(ctx context.Context, exec SQLExecutor, sessionID int) ([]*models.ScoreUpdate, error) {
	query := `
		SELECT id, session_id, judge_id, criterion_id, value, sequence, client_time, server_time
		FROM score_updates
		WHERE session_id = $1
		ORDER BY judge_id, criterion_id, sequence`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := make([]*models.ScoreUpdate, 0)
	for rows.Next() {
		var u models.ScoreUpdate
		errScan := rows.Scan(&u.ID, &u.SessionID, &u.JudgeID, &u.CriterionID,
			&u.Value, &u.Sequence, &u.ClientTime, &u.ServerTime)
		if errScan != nil {
			return nil, errScan
		}
		updates = append(updates, &u)
	}
	return updates, rows.Err()
}

// UpsertAggregate stores the per-criterion breakdown as JSONB; the scalar
// columns exist for standings queries that do not need the breakdown.
func (r *postgresScoreRepository) UpsertAggregate(ctx context.Context, exec SQLExecutor, a *models.AggregatedScore) error {
	criteria, err := json.Marshal(a.Criteria)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO aggregated_scores
			(session_id, team_id, method, criteria, total, max_possible, normalized,
			 requires_review, finalized, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE SET
			method = EXCLUDED.method,
			criteria = EXCLUDED.criteria,
			total = EXCLUDED.total,
			max_possible = EXCLUDED.max_possible,
			normalized = EXCLUDED.normalized,
			requires_review = EXCLUDED.requires_review,
			finalized = EXCLUDED.finalized,
			computed_at = EXCLUDED.computed_at`
	_, err = r.getExecutor(exec).ExecContext(ctx, query,
		a.SessionID, a.TeamID, a.Method, criteria, a.Total, a.MaxPossible, a.Normalized,
		a.RequiresReview, a.Finalized, a.ComputedAt)
	return err
}

func (r *postgresScoreRepository) GetAggregate(ctx context.Context, exec SQLExecutor, sessionID int) (*models.AggregatedScore, error) {
	query := `
		SELECT session_id, team_id, method, criteria, total, max_possible, normalized,
		       requires_review, finalized, computed_at
		FROM aggregated_scores
		WHERE session_id = $1`
	return r.scanAggregate(r.getExecutor(exec).QueryRowContext(ctx, query, sessionID))
}

func (r *postgresScoreRepository) ListFinalizedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.AggregatedScore, error) {
	query := `
		SELECT a.session_id, a.team_id, a.method, a.criteria, a.total, a.max_possible,
		       a.normalized, a.requires_review, a.finalized, a.computed_at
		FROM aggregated_scores a
		JOIN live_scoring_sessions s ON s.id = a.session_id
		WHERE s.tournament_id = $1 AND a.finalized = TRUE`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aggregates := make([]*models.AggregatedScore, 0)
	for rows.Next() {
		a, errScan := r.scanAggregate(rows)
		if errScan != nil {
			return nil, errScan
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

func (r *postgresScoreRepository) scanAggregate(row interface{ Scan(...interface{}) error }) (*models.AggregatedScore, error) {
	var a models.AggregatedScore
	var criteria []byte
	err := row.Scan(&a.SessionID, &a.TeamID, &a.Method, &criteria, &a.Total,
		&a.MaxPossible, &a.Normalized, &a.RequiresReview, &a.Finalized, &a.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAggregateNotFound
		}
		return nil, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &a.Criteria); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
