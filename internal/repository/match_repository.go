package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripsignal/tripsignal/internal/models"
)

type MatchRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// RecordTx upserts the (signal, deal) pair in a single statement. An already
// recorded pair is not an error: the existing row comes back with
// created=false and its run_id refreshed for traceability. Two concurrent
// passes can both call this; exactly one sees created=true.
func (r *MatchRepository) RecordTx(ctx context.Context, tx pgx.Tx, signalID, dealID, runID string) (*models.Match, bool, error) {
	if signalID == "" {
		return nil, false, fmt.Errorf("signal id is empty")
	}
	if dealID == "" {
		return nil, false, fmt.Errorf("deal id is empty")
	}

	var run any
	if runID != "" {
		run = runID
	}

	query := r.sb.
		Insert("deal_matches").
		Columns("signal_id", "deal_id", "run_id").
		Values(signalID, dealID, run).
		Suffix(`
ON CONFLICT (signal_id, deal_id)
DO UPDATE SET run_id = EXCLUDED.run_id
RETURNING id::text, run_id::text, matched_at, (xmax = 0) AS created
`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build record match sql: %w", err)
	}

	m := &models.Match{
		SignalID: signalID,
		DealID:   dealID,
	}

	var (
		created  bool
		runIDOut pgtype.Text
	)
	if err := tx.QueryRow(ctx, sqlStr, args...).Scan(&m.ID, &runIDOut, &m.MatchedAt, &created); err != nil {
		return nil, false, fmt.Errorf("record match: %w", err)
	}
	if runIDOut.Valid {
		s := runIDOut.String
		m.RunID = &s
	}

	return m, created, nil
}
