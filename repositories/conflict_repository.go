package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/robonova/competition-core/models"
)

var ErrConflictNotFound = errors.New("score conflict not found")

type ConflictRepository interface {
	Create(ctx context.Context, exec SQLExecutor, c *models.ScoreConflict) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ScoreConflict, error)
	ListOpenBySession(ctx context.Context, exec SQLExecutor, sessionID int) ([]*models.ScoreConflict, error)
	Resolve(ctx context.Context, exec SQLExecutor, id int, status models.ConflictStatus, res *models.ConflictResolution) error
}

type postgresConflictRepository struct {
	db *sql.DB
}

func NewPostgresConflictRepository(db *sql.DB) ConflictRepository {
	return &postgresConflictRepository{db: db}
}

func (r *postgresConflictRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresConflictRepository) Create(ctx context.Context, exec SQLExecutor, c *models.ScoreConflict) error {
	query := `
		INSERT INTO score_conflicts (session_id, criterion_id, kind, judge_id, deviation, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.getExecutor(exec).QueryRowContext(ctx, query,
		c.SessionID, c.CriterionID, c.Kind, c.JudgeID, c.Deviation, c.Status,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *postgresConflictRepository) scan(row interface{ Scan(...interface{}) error }) (*models.ScoreConflict, error) {
	var c models.ScoreConflict
	var resolverID sql.NullInt64
	var action sql.NullString
	var overrideValue sql.NullFloat64
	var rationale sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.SessionID, &c.CriterionID, &c.Kind, &c.JudgeID, &c.Deviation, &c.Status, &c.CreatedAt,
		&resolverID, &action, &overrideValue, &rationale, &resolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}
	if resolverID.Valid {
		res := &models.ConflictResolution{
			ResolverID: int(resolverID.Int64),
			Action:     models.ResolutionAction(action.String),
			Rationale:  rationale.String,
			ResolvedAt: resolvedAt.Time,
		}
		if overrideValue.Valid {
			res.OverrideValue = &overrideValue.Float64
		}
		c.Resolution = res
	}
	return &c, nil
}

const conflictColumns = `id, session_id, criterion_id, kind, judge_id, deviation, status, created_at,
	resolver_id, action, override_value, rationale, resolved_at`

func (r *postgresConflictRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ScoreConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM score_conflicts WHERE id = $1`
	return r.scan(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresConflictRepository) ListOpenBySession(ctx context.Context, exec SQLExecutor, sessionID int) ([]*models.ScoreConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM score_conflicts WHERE session_id = $1 AND status = $2 ORDER BY id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, sessionID, models.ConflictOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conflicts := make([]*models.ScoreConflict, 0)
	for rows.Next() {
		c, errScan := r.scan(rows)
		if errScan != nil {
			return nil, errScan
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func (r *postgresConflictRepository) Resolve(ctx context.Context, exec SQLExecutor, id int, status models.ConflictStatus, res *models.ConflictResolution) error {
	query := `
		UPDATE score_conflicts SET
			status = $1, resolver_id = $2, action = $3, override_value = $4, rationale = $5, resolved_at = $6
		WHERE id = $7 AND status = $8`
	var resolverID *int
	var action *models.ResolutionAction
	var overrideValue *float64
	var rationale *string
	var resolvedAt interface{}
	if res != nil {
		resolverID = &res.ResolverID
		action = &res.Action
		overrideValue = res.OverrideValue
		rationale = &res.Rationale
		resolvedAt = res.ResolvedAt
	}
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		status, resolverID, action, overrideValue, rationale, resolvedAt, id, models.ConflictOpen)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrConflictNotFound)
}
