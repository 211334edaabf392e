package models

import "time"

const (
	RunTypeScheduled = "scheduled"
	RunTypeManual    = "manual"
	RunTypeTest      = "test"
)

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Run makes one matching pass auditable: what started it, how it ended,
// and how many matches it created.
type Run struct {
	ID             string     `db:"id"`
	RunType        string     `db:"run_type"`
	Status         string     `db:"status"`
	StartedAt      time.Time  `db:"started_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	MatchesCreated int        `db:"matches_created"`
	ErrorMessage   *string    `db:"error_message"`
}

// Match is the unique (signal, deal) pairing. RunID points at the pass
// that most recently observed the pair.
type Match struct {
	ID        string    `db:"id"`
	SignalID  string    `db:"signal_id"`
	DealID    string    `db:"deal_id"`
	RunID     *string   `db:"run_id"`
	MatchedAt time.Time `db:"matched_at"`
}
