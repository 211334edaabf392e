package models

import (
	"fmt"
	"time"
)

// DealCandidate is one normalized provider listing, before dedupe.
// It lives only inside a scrape pass and is never persisted as-is.
type DealCandidate struct {
	Provider         string
	Origin           string // IATA gateway code
	DestinationLabel string // raw destination string from the listing
	Region           string // normalized region key, "" when unmapped
	HotelName        string
	HotelID          string
	DepartDate       time.Time
	ReturnDate       time.Time
	DurationNights   int
	PriceCents       int
	DiscountPct      int
	StarRating       *float64
	DeeplinkURL      string
}

// DedupeKey identifies the same inventory slot across repeated scrapes.
// It must stay stable for the lifetime of a deal.
func (c *DealCandidate) DedupeKey() string {
	return fmt.Sprintf("%s:%s:%s:%s:%d",
		c.Provider,
		c.Origin,
		c.HotelID,
		c.DepartDate.Format("2006-01-02"),
		c.DurationNights,
	)
}

type Deal struct {
	ID             string     `db:"id"`
	Provider       string     `db:"provider"`
	Origin         string     `db:"origin"`
	Destination    string     `db:"destination"`
	Region         *string    `db:"region"`
	HotelName      string     `db:"hotel_name"`
	HotelID        string     `db:"hotel_id"`
	DepartDate     time.Time  `db:"depart_date"`
	ReturnDate     *time.Time `db:"return_date"`
	DurationNights int        `db:"duration_nights"`
	PriceCents     int        `db:"price_cents"`
	Currency       string     `db:"currency"`
	DiscountPct    int        `db:"discount_pct"`
	StarRating     *float64   `db:"star_rating"`
	DeeplinkURL    *string    `db:"deeplink_url"`
	IsActive       bool       `db:"is_active"`
	FoundAt        time.Time  `db:"found_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	DedupeKey      string     `db:"dedupe_key"`
}

// PricePoint is one observed price for a deal. Append-only.
type PricePoint struct {
	ID         string    `db:"id"`
	DealID     string    `db:"deal_id"`
	PriceCents int       `db:"price_cents"`
	RecordedAt time.Time `db:"recorded_at"`
}
