package models

import "time"

const (
	ChannelEmail = "email"
	ChannelLog   = "log"
)

// OutboxMessage is the single source of truth for delivery state.
// There is no in-memory queue: workers claim rows straight from the table.
type OutboxMessage struct {
	ID        string    `db:"id"` // UUID
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Status        string     `db:"status"` // pending, sending, sent, dead
	Attempts      int        `db:"attempts"`
	SentAt        *time.Time `db:"sent_at"`
	NextAttemptAt *time.Time `db:"next_attempt_at"` // NULL iff status is terminal
	LastError     *string    `db:"last_error"`

	SignalID *string `db:"signal_id"` // nil for admin-generated alerts
	MatchID  *string `db:"match_id"`

	Channel  string `db:"channel"`
	ToEmail  string `db:"to_email"`
	Subject  string `db:"subject"`
	BodyText string `db:"body_text"`
}
