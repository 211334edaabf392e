package kafka

import (
	"time"

	"github.com/tripsignal/tripsignal/internal/models"
)

const (
	EventDealCreated   = "deal_created"
	EventPriceObserved = "price_observed"
)

// DealEvent is the wire form of one deal observation for downstream
// consumers (analytics, the web feed). Keyed by dedupe key so all events
// for one inventory slot land on the same partition.
type DealEvent struct {
	Event          string    `json:"event"`
	DedupeKey      string    `json:"dedupe_key"`
	Provider       string    `json:"provider"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	Region         *string   `json:"region,omitempty"`
	DepartDate     string    `json:"depart_date"`
	DurationNights int       `json:"duration_nights"`
	PriceCents     int       `json:"price_cents"`
	Currency       string    `json:"currency"`
	ObservedAt     time.Time `json:"observed_at"`
}

func NewDealEvent(deal *models.Deal, created bool) *DealEvent {
	event := EventPriceObserved
	if created {
		event = EventDealCreated
	}

	return &DealEvent{
		Event:          event,
		DedupeKey:      deal.DedupeKey,
		Provider:       deal.Provider,
		Origin:         deal.Origin,
		Destination:    deal.Destination,
		Region:         deal.Region,
		DepartDate:     deal.DepartDate.Format("2006-01-02"),
		DurationNights: deal.DurationNights,
		PriceCents:     deal.PriceCents,
		Currency:       deal.Currency,
		ObservedAt:     time.Now().UTC(),
	}
}
