package service

import "github.com/tripsignal/tripsignal/internal/models"

type Trend string

const (
	TrendDown   Trend = "down"
	TrendUp     Trend = "up"
	TrendStable Trend = "stable"
	TrendNone   Trend = "none"
)

// trendThreshold is the relative change beyond which a move counts as a
// real trend rather than noise.
const trendThreshold = 0.05

// PriceTrend compares the two most recent observations (points must be
// newest-first). Fewer than two points yields TrendNone. Derived on demand,
// never stored.
func PriceTrend(points []models.PricePoint) Trend {
	if len(points) < 2 {
		return TrendNone
	}

	latest := points[0].PriceCents
	previous := points[1].PriceCents
	if previous <= 0 {
		return TrendNone
	}

	change := float64(latest-previous) / float64(previous)
	switch {
	case change < -trendThreshold:
		return TrendDown
	case change > trendThreshold:
		return TrendUp
	default:
		return TrendStable
	}
}
