package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripsignal/tripsignal/internal/models"
)

type DealRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewDealRepository(db *pgxpool.Pool) *DealRepository {
	return &DealRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// UpsertTx inserts or refreshes the deal for the candidate's dedupe key.
// Existing rows get the observed price and are reactivated; the dedupe key
// itself never changes. Returns created=true on first sighting.
func (r *DealRepository) UpsertTx(ctx context.Context, tx pgx.Tx, cand *models.DealCandidate) (*models.Deal, bool, error) {
	if cand == nil {
		return nil, false, fmt.Errorf("candidate is nil")
	}
	if cand.Origin == "" {
		return nil, false, fmt.Errorf("origin is empty")
	}
	if cand.DepartDate.IsZero() {
		return nil, false, fmt.Errorf("depart_date is zero")
	}
	if cand.PriceCents <= 0 {
		return nil, false, fmt.Errorf("price_cents must be > 0")
	}

	var region, returnDate, deeplink any
	if cand.Region != "" {
		region = cand.Region
	}
	if !cand.ReturnDate.IsZero() {
		returnDate = cand.ReturnDate
	}
	if cand.DeeplinkURL != "" {
		deeplink = cand.DeeplinkURL
	}

	destination := cand.DestinationLabel
	if destination == "" {
		destination = cand.Region
	}

	query := r.sb.
		Insert("deals").
		Columns(
			"provider",
			"origin",
			"destination",
			"region",
			"hotel_name",
			"hotel_id",
			"depart_date",
			"return_date",
			"duration_nights",
			"price_cents",
			"discount_pct",
			"star_rating",
			"deeplink_url",
			"dedupe_key",
		).
		Values(
			cand.Provider,
			cand.Origin,
			destination,
			region,
			cand.HotelName,
			cand.HotelID,
			cand.DepartDate,
			returnDate,
			cand.DurationNights,
			cand.PriceCents,
			cand.DiscountPct,
			cand.StarRating,
			deeplink,
			cand.DedupeKey(),
		).
		Suffix(`
ON CONFLICT (dedupe_key)
DO UPDATE SET
	price_cents = EXCLUDED.price_cents,
	discount_pct = EXCLUDED.discount_pct,
	is_active = true,
	updated_at = NOW()
RETURNING id::text, price_cents, is_active, found_at, updated_at, (xmax = 0) AS created
`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build upsert deal sql: %w", err)
	}

	deal := &models.Deal{
		Provider:       cand.Provider,
		Origin:         cand.Origin,
		Destination:    destination,
		HotelName:      cand.HotelName,
		HotelID:        cand.HotelID,
		DepartDate:     cand.DepartDate,
		DurationNights: cand.DurationNights,
		Currency:       "CAD",
		DiscountPct:    cand.DiscountPct,
		StarRating:     cand.StarRating,
		DedupeKey:      cand.DedupeKey(),
	}
	if cand.Region != "" {
		v := cand.Region
		deal.Region = &v
	}
	if !cand.ReturnDate.IsZero() {
		v := cand.ReturnDate
		deal.ReturnDate = &v
	}
	if cand.DeeplinkURL != "" {
		v := cand.DeeplinkURL
		deal.DeeplinkURL = &v
	}

	var created bool
	err = tx.QueryRow(ctx, sqlStr, args...).Scan(
		&deal.ID,
		&deal.PriceCents,
		&deal.IsActive,
		&deal.FoundAt,
		&deal.UpdatedAt,
		&created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert deal: %w", err)
	}

	return deal, created, nil
}

// AddPricePointTx appends one observation. History records every sighting,
// not only price changes.
func (r *DealRepository) AddPricePointTx(ctx context.Context, tx pgx.Tx, dealID string, priceCents int) error {
	if dealID == "" {
		return fmt.Errorf("deal id is empty")
	}

	query := r.sb.
		Insert("deal_price_history").
		Columns("deal_id", "price_cents").
		Values(dealID, priceCents)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert price point sql: %w", err)
	}

	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert price point: %w", err)
	}

	return nil
}

// DeactivateMissing flips is_active=false on every active deal whose dedupe
// key was not re-observed by the last full pass. Rows are never deleted here.
func (r *DealRepository) DeactivateMissing(ctx context.Context, seenKeys []string) (int, error) {
	if len(seenKeys) == 0 {
		return 0, nil
	}

	query := r.sb.
		Update("deals").
		Set("is_active", false).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"is_active": true}).
		Where(sq.Expr("NOT (dedupe_key = ANY(?))", seenKeys))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build deactivate deals sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate deals: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func dealColumns() []string {
	return []string{
		"id::text",
		"provider",
		"origin",
		"destination",
		"region",
		"hotel_name",
		"hotel_id",
		"depart_date",
		"return_date",
		"duration_nights",
		"price_cents",
		"currency",
		"discount_pct",
		"star_rating",
		"deeplink_url",
		"is_active",
		"found_at",
		"updated_at",
		"dedupe_key",
	}
}

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var (
		d          models.Deal
		region     pgtype.Text
		returnDate pgtype.Date
		starRating pgtype.Float8
		deeplink   pgtype.Text
	)

	err := row.Scan(
		&d.ID,
		&d.Provider,
		&d.Origin,
		&d.Destination,
		&region,
		&d.HotelName,
		&d.HotelID,
		&d.DepartDate,
		&returnDate,
		&d.DurationNights,
		&d.PriceCents,
		&d.Currency,
		&d.DiscountPct,
		&starRating,
		&deeplink,
		&d.IsActive,
		&d.FoundAt,
		&d.UpdatedAt,
		&d.DedupeKey,
	)
	if err != nil {
		return nil, err
	}

	if region.Valid {
		s := region.String
		d.Region = &s
	}
	if returnDate.Valid {
		t := returnDate.Time
		d.ReturnDate = &t
	}
	if starRating.Valid {
		f := starRating.Float64
		d.StarRating = &f
	}
	if deeplink.Valid {
		s := deeplink.String
		d.DeeplinkURL = &s
	}

	return &d, nil
}

func (r *DealRepository) Get(ctx context.Context, id string) (*models.Deal, error) {
	if id == "" {
		return nil, fmt.Errorf("deal id is empty")
	}

	query := r.sb.
		Select(dealColumns()...).
		From("deals").
		Where(sq.Eq{"id": id}).
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get deal sql: %w", err)
	}

	d, err := scanDeal(r.db.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}

	return d, nil
}

// List returns deals newest-first. With onlyActive, retired deals are skipped.
func (r *DealRepository) List(ctx context.Context, onlyActive bool, limit int) ([]*models.Deal, error) {
	if limit <= 0 {
		limit = 100
	}

	query := r.sb.
		Select(dealColumns()...).
		From("deals").
		OrderBy("found_at DESC", "id DESC").
		Limit(uint64(limit))

	if onlyActive {
		query = query.Where(sq.Eq{"is_active": true})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list deals sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	res := make([]*models.Deal, 0, limit)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal rows: %w", err)
	}

	return res, nil
}

// RecentPrices returns the latest observations, newest first.
func (r *DealRepository) RecentPrices(ctx context.Context, dealID string, limit int) ([]models.PricePoint, error) {
	if dealID == "" {
		return nil, fmt.Errorf("deal id is empty")
	}
	if limit <= 0 {
		limit = 2
	}

	query := r.sb.
		Select("id::text", "deal_id::text", "price_cents", "recorded_at").
		From("deal_price_history").
		Where(sq.Eq{"deal_id": dealID}).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(uint64(limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent prices sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent prices: %w", err)
	}
	defer rows.Close()

	res := make([]models.PricePoint, 0, limit)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.ID, &p.DealID, &p.PriceCents, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price points: %w", err)
	}

	return res, nil
}
