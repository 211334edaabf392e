package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripsignal/tripsignal/internal/models"
)

var allowedRunTypes = map[string]struct{}{
	models.RunTypeScheduled: {},
	models.RunTypeManual:    {},
	models.RunTypeTest:      {},
}

type RunRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Start(runType) - insert a run with status "running"
func (r *RunRepository) Start(ctx context.Context, runType string) (*models.Run, error) {
	if _, ok := allowedRunTypes[runType]; !ok {
		return nil, fmt.Errorf("invalid run type: %s", runType)
	}

	query := r.sb.
		Insert("runs").
		Columns("run_type", "status").
		Values(runType, models.RunStatusRunning).
		Suffix("RETURNING id::text, started_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build start run sql: %w", err)
	}

	run := &models.Run{
		RunType: runType,
		Status:  models.RunStatusRunning,
	}
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&run.ID, &run.StartedAt); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	return run, nil
}

// Complete(id, matchesCreated) - status "success", completed_at, matches counter
func (r *RunRepository) Complete(ctx context.Context, id string, matchesCreated int) error {
	if id == "" {
		return fmt.Errorf("run id is empty")
	}
	if matchesCreated < 0 {
		matchesCreated = 0
	}

	query := r.sb.
		Update("runs").
		Set("status", models.RunStatusSuccess).
		Set("completed_at", sq.Expr("NOW()")).
		Set("matches_created", matchesCreated).
		Where(sq.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build complete run sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Fail(id, errMsg) - status "failed" with the captured error text. Matches
// already committed by the pass are left intact.
func (r *RunRepository) Fail(ctx context.Context, id string, matchesCreated int, errMsg string) error {
	if id == "" {
		return fmt.Errorf("run id is empty")
	}
	if errMsg == "" {
		errMsg = "unknown error"
	}

	query := r.sb.
		Update("runs").
		Set("status", models.RunStatusFailed).
		Set("completed_at", sq.Expr("NOW()")).
		Set("matches_created", matchesCreated).
		Set("error_message", errMsg).
		Where(sq.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build fail run sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
