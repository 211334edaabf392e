package repository

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripsignal/tripsignal/internal/models"
)

type SignalRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewSignalRepository(db *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts a signal. The flattened airport/region columns are derived
// from the config here and nowhere else.
func (r *SignalRepository) Create(ctx context.Context, name string, cfg *models.SignalConfig) (*models.Signal, error) {
	if name == "" {
		return nil, fmt.Errorf("name is empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal signal config: %w", err)
	}

	query := r.sb.
		Insert("signals").
		Columns("name", "status", "departure_airports", "destination_regions", "config").
		Values(name, models.SignalStatusActive, cfg.FlattenAirports(), cfg.FlattenRegions(), payload).
		Suffix("RETURNING id::text, created_at, updated_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build create signal sql: %w", err)
	}

	s := &models.Signal{
		Name:               name,
		Status:             models.SignalStatusActive,
		DepartureAirports:  cfg.FlattenAirports(),
		DestinationRegions: cfg.FlattenRegions(),
		Config:             *cfg,
	}
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create signal: %w", err)
	}

	return s, nil
}

// ListActive returns every signal eligible for matching.
func (r *SignalRepository) ListActive(ctx context.Context) ([]*models.Signal, error) {
	query := r.sb.
		Select("id::text", "name", "status", "departure_airports", "destination_regions", "config", "created_at", "updated_at").
		From("signals").
		Where(sq.Eq{"status": models.SignalStatusActive}).
		OrderBy("created_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active signals sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query active signals: %w", err)
	}
	defer rows.Close()

	res := make([]*models.Signal, 0)
	for rows.Next() {
		var (
			s   models.Signal
			raw []byte
		)
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Status,
			&s.DepartureAirports,
			&s.DestinationRegions,
			&raw,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}

		if err := json.Unmarshal(raw, &s.Config); err != nil {
			return nil, fmt.Errorf("unmarshal signal config %s: %w", s.ID, err)
		}

		res = append(res, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return res, nil
}
