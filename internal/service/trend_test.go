package service_test

import (
	"testing"
	"time"

	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/service"
)

func points(cents ...int) []models.PricePoint {
	// newest first, matching RecentPrices ordering
	now := time.Now()
	out := make([]models.PricePoint, 0, len(cents))
	for i, c := range cents {
		out = append(out, models.PricePoint{
			PriceCents: c,
			RecordedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestPriceTrend_Down(t *testing.T) {
	if got := service.PriceTrend(points(94000, 100000)); got != service.TrendDown {
		t.Errorf("PriceTrend = %s, want down", got)
	}
}

func TestPriceTrend_Up(t *testing.T) {
	if got := service.PriceTrend(points(106000, 100000)); got != service.TrendUp {
		t.Errorf("PriceTrend = %s, want up", got)
	}
}

func TestPriceTrend_StableWithinThreshold(t *testing.T) {
	// 2% move either way is noise
	if got := service.PriceTrend(points(98000, 100000)); got != service.TrendStable {
		t.Errorf("PriceTrend(-2%%) = %s, want stable", got)
	}
	if got := service.PriceTrend(points(102000, 100000)); got != service.TrendStable {
		t.Errorf("PriceTrend(+2%%) = %s, want stable", got)
	}
}

func TestPriceTrend_TooFewPoints(t *testing.T) {
	if got := service.PriceTrend(nil); got != service.TrendNone {
		t.Errorf("PriceTrend(nil) = %s, want none", got)
	}
	if got := service.PriceTrend(points(100000)); got != service.TrendNone {
		t.Errorf("PriceTrend(one point) = %s, want none", got)
	}
}

func TestPriceTrend_OnlyTwoNewestCount(t *testing.T) {
	// older points beyond the first two are ignored
	if got := service.PriceTrend(points(100000, 100000, 50000)); got != service.TrendStable {
		t.Errorf("PriceTrend = %s, want stable", got)
	}
}
