package models

import "time"

const (
	SignalStatusActive   = "active"
	SignalStatusPaused   = "paused"
	SignalStatusArchived = "archived"
)

// Signal is a user's standing watch definition. Signals are created by the
// CRUD boundary; the matcher consumes them read-only.
type Signal struct {
	ID     string `db:"id"`
	Name   string `db:"name"`
	Status string `db:"status"`

	// Flattened from Config at write time, never hand-maintained.
	DepartureAirports  []string `db:"departure_airports"`
	DestinationRegions []string `db:"destination_regions"`

	Config SignalConfig `db:"config"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SignalConfig is the structured predicate object stored as JSONB.
type SignalConfig struct {
	Departure     DepartureSpec     `json:"departure"`
	Destination   DestinationSpec   `json:"destination"`
	TravelWindow  TravelWindow      `json:"travel_window"`
	Travellers    Travellers        `json:"travellers"`
	Budget        *BudgetSpec       `json:"budget,omitempty"`
	Preferences   Preferences       `json:"preferences"`
	Notifications NotificationsSpec `json:"notifications"`
}

type DepartureSpec struct {
	Mode     string   `json:"mode"`
	Airports []string `json:"airports"`
}

type DestinationSpec struct {
	Mode    string   `json:"mode"`
	Regions []string `json:"regions"`
}

type TravelWindow struct {
	StartMonth string `json:"start_month"` // YYYY-MM
	EndMonth   string `json:"end_month"`   // YYYY-MM
	MinNights  int    `json:"min_nights"`
	MaxNights  int    `json:"max_nights"`
}

type Travellers struct {
	Adults       int   `json:"adults"`
	ChildrenAges []int `json:"children_ages"`
	Rooms        int   `json:"rooms"`
}

type BudgetSpec struct {
	Currency string `json:"currency"`
	TargetPP int    `json:"target_pp"` // per person, in whole dollars
	Strict   bool   `json:"strict"`
}

type Preferences struct {
	MinStarRating *float64 `json:"min_star_rating,omitempty"`
}

type NotificationsSpec struct {
	Channel string `json:"channel"` // email or log
	Email   string `json:"email"`
}

// FlattenAirports derives the departure_airports lookup column.
func (c *SignalConfig) FlattenAirports() []string {
	out := make([]string, 0, len(c.Departure.Airports))
	out = append(out, c.Departure.Airports...)
	return out
}

// FlattenRegions derives the destination_regions lookup column.
func (c *SignalConfig) FlattenRegions() []string {
	out := make([]string, 0, len(c.Destination.Regions))
	out = append(out, c.Destination.Regions...)
	return out
}
