package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripsignal/tripsignal/internal/models"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSending = "sending"
	OutboxStatusSent    = "sent"
	OutboxStatusDead    = "dead"
)

var allowedOutboxStatuses = map[string]struct{}{
	OutboxStatusPending: {},
	OutboxStatusSending: {},
	OutboxStatusSent:    {},
	OutboxStatusDead:    {},
}

var allowedChannels = map[string]struct{}{
	models.ChannelEmail: {},
	models.ChannelLog:   {},
}

type OutboxRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func validateEnqueue(msg *models.OutboxMessage) error {
	if msg == nil {
		return fmt.Errorf("outbox message is nil")
	}
	if _, ok := allowedChannels[msg.Channel]; !ok {
		return fmt.Errorf("invalid channel: %s", msg.Channel)
	}
	if msg.ToEmail == "" {
		return fmt.Errorf("to_email is empty")
	}
	if msg.Subject == "" {
		return fmt.Errorf("subject is empty")
	}
	return nil
}

func (r *OutboxRepository) enqueue(ctx context.Context, q queryRower, msg *models.OutboxMessage) error {
	if err := validateEnqueue(msg); err != nil {
		return err
	}

	query := r.sb.
		Insert("notifications_outbox").
		Columns("status", "attempts", "next_attempt_at", "signal_id", "match_id", "channel", "to_email", "subject", "body_text").
		Values(OutboxStatusPending, 0, sq.Expr("NOW()"), msg.SignalID, msg.MatchID, msg.Channel, msg.ToEmail, msg.Subject, msg.BodyText).
		Suffix("RETURNING id::text, created_at, updated_at, next_attempt_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}

	var next pgtype.Timestamptz
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt, &next); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	msg.Status = OutboxStatusPending
	msg.Attempts = 0
	if next.Valid {
		t := next.Time
		msg.NextAttemptAt = &t
	}
	msg.SentAt = nil
	msg.LastError = nil
	return nil
}

// queryRower is satisfied by both pgx.Tx and *pgxpool.Pool.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Enqueue inserts a pending message eligible immediately.
func (r *OutboxRepository) Enqueue(ctx context.Context, msg *models.OutboxMessage) error {
	return r.enqueue(ctx, r.db, msg)
}

// EnqueueTx inserts a pending message inside the caller's transaction, so a
// notification and the match that produced it commit or roll back together.
func (r *OutboxRepository) EnqueueTx(ctx context.Context, tx pgx.Tx, msg *models.OutboxMessage) error {
	return r.enqueue(ctx, tx, msg)
}

const outboxColumns = `id::text, created_at, updated_at, sent_at, status, attempts,
	next_attempt_at, last_error, signal_id::text, match_id::text,
	channel, to_email, subject, body_text`

func scanOutboxMessage(row pgx.Row) (*models.OutboxMessage, error) {
	var (
		m        models.OutboxMessage
		sentAt   pgtype.Timestamptz
		nextAt   pgtype.Timestamptz
		lastErr  pgtype.Text
		signalID pgtype.Text
		matchID  pgtype.Text
	)

	err := row.Scan(
		&m.ID,
		&m.CreatedAt,
		&m.UpdatedAt,
		&sentAt,
		&m.Status,
		&m.Attempts,
		&nextAt,
		&lastErr,
		&signalID,
		&matchID,
		&m.Channel,
		&m.ToEmail,
		&m.Subject,
		&m.BodyText,
	)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		t := sentAt.Time
		m.SentAt = &t
	}
	if nextAt.Valid {
		t := nextAt.Time
		m.NextAttemptAt = &t
	}
	if lastErr.Valid {
		s := lastErr.String
		m.LastError = &s
	}
	if signalID.Valid {
		s := signalID.String
		m.SignalID = &s
	}
	if matchID.Valid {
		s := matchID.String
		m.MatchID = &s
	}

	return &m, nil
}

// ClaimBatch locks up to limit eligible rows for one channel and flips them
// to "sending" with attempts incremented, all in one transaction. Eligible
// means pending and due, or stuck in "sending" longer than staleAfter (a
// crashed worker's leftovers). SKIP LOCKED partitions concurrent claimers:
// no row is ever handed to two workers. Rows come back oldest-created-first.
//
// Attempts are incremented at claim time, before any delivery attempt, so a
// crash mid-delivery still counts toward the retry ceiling once the row is
// reclaimed.
func (r *OutboxRepository) ClaimBatch(ctx context.Context, channel string, limit int, staleAfter time.Duration) ([]*models.OutboxMessage, error) {
	if _, ok := allowedChannels[channel]; !ok {
		return nil, fmt.Errorf("invalid channel: %s", channel)
	}
	if limit <= 0 {
		limit = 25
	}
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT `+outboxColumns+`
FROM notifications_outbox
WHERE channel = $1
  AND next_attempt_at <= NOW()
  AND (
    status = 'pending'
    OR (status = 'sending' AND updated_at < NOW() - ($3 * INTERVAL '1 second'))
  )
ORDER BY created_at ASC
FOR UPDATE SKIP LOCKED
LIMIT $2
`, channel, limit, staleAfter.Seconds())
	if err != nil {
		return nil, fmt.Errorf("query claimable rows: %w", err)
	}

	claimed := make([]*models.OutboxMessage, 0, limit)
	for rows.Next() {
		m, err := scanOutboxMessage(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan claimable row: %w", err)
		}
		claimed = append(claimed, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimable rows: %w", err)
	}

	if len(claimed) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]string, 0, len(claimed))
	for _, m := range claimed {
		ids = append(ids, m.ID)
	}

	if _, err := tx.Exec(ctx, `
UPDATE notifications_outbox
SET status = 'sending', attempts = attempts + 1, updated_at = NOW()
WHERE id = ANY($1::uuid[])
`, ids); err != nil {
		return nil, fmt.Errorf("mark rows sending: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}

	now := time.Now()
	for _, m := range claimed {
		m.Status = OutboxStatusSending
		m.Attempts++
		m.UpdatedAt = now
	}

	return claimed, nil
}

// The mark methods only touch rows still in "sending". A row that left
// "sending" was reclaimed by another worker after the staleness timeout and
// driven to its own outcome; a belated marker must never override that,
// or a delivered message could flip sent -> pending and go out twice.
// Zero rows affected therefore means a lost claim, not a missing row.

func (r *OutboxRepository) markSentQuery(id string) sq.UpdateBuilder {
	return r.sb.
		Update("notifications_outbox").
		Set("status", OutboxStatusSent).
		Set("sent_at", sq.Expr("NOW()")).
		Set("last_error", nil).
		Set("next_attempt_at", nil).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": OutboxStatusSending})
}

func (r *OutboxRepository) markRetryQuery(id, errMsg string, nextAttemptAt time.Time) sq.UpdateBuilder {
	return r.sb.
		Update("notifications_outbox").
		Set("status", OutboxStatusPending).
		Set("last_error", errMsg).
		Set("next_attempt_at", nextAttemptAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": OutboxStatusSending})
}

func (r *OutboxRepository) markDeadQuery(id, errMsg string) sq.UpdateBuilder {
	return r.sb.
		Update("notifications_outbox").
		Set("status", OutboxStatusDead).
		Set("last_error", errMsg).
		Set("next_attempt_at", nil).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": OutboxStatusSending})
}

// MarkSent - terminal success: clear error and next_attempt_at.
func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("message id is empty")
	}

	sqlStr, args, err := r.markSentQuery(id).ToSql()
	if err != nil {
		return fmt.Errorf("build mark sent sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// lost claim, the row was reclaimed and resolved elsewhere
		return nil
	}
	return nil
}

// MarkRetry - back to pending, eligible again at nextAttemptAt.
func (r *OutboxRepository) MarkRetry(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	if id == "" {
		return fmt.Errorf("message id is empty")
	}
	if errMsg == "" {
		errMsg = "unknown error"
	}

	sqlStr, args, err := r.markRetryQuery(id, errMsg, nextAttemptAt).ToSql()
	if err != nil {
		return fmt.Errorf("build mark retry sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("mark outbox retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// lost claim, the row was reclaimed and resolved elsewhere
		return nil
	}
	return nil
}

// MarkDead - terminal failure after the attempt ceiling.
func (r *OutboxRepository) MarkDead(ctx context.Context, id string, errMsg string) error {
	if id == "" {
		return fmt.Errorf("message id is empty")
	}
	if errMsg == "" {
		errMsg = "unknown error"
	}

	sqlStr, args, err := r.markDeadQuery(id, errMsg).ToSql()
	if err != nil {
		return fmt.Errorf("build mark dead sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("mark outbox dead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// lost claim, the row was reclaimed and resolved elsewhere
		return nil
	}
	return nil
}

// LastSentForSignal returns when a notification for the signal was last
// delivered, or nil if none was. Drives the per-signal cooldown.
func (r *OutboxRepository) LastSentForSignal(ctx context.Context, signalID string) (*time.Time, error) {
	if signalID == "" {
		return nil, fmt.Errorf("signal id is empty")
	}

	query := r.sb.
		Select("MAX(sent_at)").
		From("notifications_outbox").
		Where(sq.Eq{"signal_id": signalID, "status": OutboxStatusSent})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build last sent sql: %w", err)
	}

	var last pgtype.Timestamptz
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&last); err != nil {
		return nil, fmt.Errorf("query last sent: %w", err)
	}

	if !last.Valid {
		return nil, nil
	}
	t := last.Time
	return &t, nil
}

// ListRecent returns outbox rows newest-first, optionally filtered by status.
// Observability surface only; it takes no locks.
func (r *OutboxRepository) ListRecent(ctx context.Context, status string, limit int) ([]*models.OutboxMessage, error) {
	if status != "" {
		if _, ok := allowedOutboxStatuses[status]; !ok {
			return nil, fmt.Errorf("invalid status: %s", status)
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := r.sb.
		Select(outboxColumns).
		From("notifications_outbox").
		OrderBy("created_at DESC").
		Limit(uint64(limit))

	if status != "" {
		query = query.Where(sq.Eq{"status": status})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list outbox sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox rows: %w", err)
	}
	defer rows.Close()

	res := make([]*models.OutboxMessage, 0, limit)
	for rows.Next() {
		m, err := scanOutboxMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	return res, nil
}

// CleanupOldSent deletes sent rows older than the retention window.
func (r *OutboxRepository) CleanupOldSent(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	query := r.sb.
		Delete("notifications_outbox").
		Where(sq.Eq{"status": OutboxStatusSent}).
		Where(sq.Expr("created_at < NOW() - (? * INTERVAL '1 day')", retentionDays))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build outbox cleanup: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup outbox: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CountByStatus feeds the outbox status gauges.
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM notifications_outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query outbox counts: %w", err)
	}
	defer rows.Close()

	res := make(map[string]int64, len(allowedOutboxStatuses))
	for rows.Next() {
		var (
			status string
			cnt    int64
		)
		if err := rows.Scan(&status, &cnt); err != nil {
			return nil, fmt.Errorf("scan outbox count: %w", err)
		}
		res[status] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox counts: %w", err)
	}

	return res, nil
}
