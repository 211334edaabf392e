package service_test

import (
	"testing"
	"time"

	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/service"
)

func mkSignal() *models.Signal {
	min := 4.0
	return &models.Signal{
		ID:                 "sig-1",
		Name:               "Winter sun",
		Status:             models.SignalStatusActive,
		DepartureAirports:  []string{"YYZ", "YHM"},
		DestinationRegions: []string{"mexico"},
		Config: models.SignalConfig{
			Departure:   models.DepartureSpec{Airports: []string{"YYZ", "YHM"}},
			Destination: models.DestinationSpec{Regions: []string{"mexico"}},
			TravelWindow: models.TravelWindow{
				StartMonth: "2026-01",
				EndMonth:   "2026-03",
				MinNights:  5,
				MaxNights:  10,
			},
			Travellers:  models.Travellers{Adults: 2},
			Budget:      &models.BudgetSpec{Currency: "CAD", TargetPP: 1500, Strict: true},
			Preferences: models.Preferences{MinStarRating: &min},
		},
	}
}

func mkDeal() *models.Deal {
	region := "mexico"
	star := 4.5
	return &models.Deal{
		ID:             "deal-1",
		Origin:         "YYZ",
		Destination:    "Cancun, Mexico",
		Region:         &region,
		DepartDate:     time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		DurationNights: 7,
		PriceCents:     250000, // $2500 total, $1250 pp for 2 adults
		StarRating:     &star,
		IsActive:       true,
	}
}

// ── Matches: full predicate set ───────────────────────────────────────────

func TestMatches_AllPredicatesSatisfied(t *testing.T) {
	ok, err := service.Matches(mkSignal(), mkDeal())
	if err != nil {
		t.Fatalf("Matches returned unexpected error: %v", err)
	}
	if !ok {
		t.Error("deal satisfying every predicate should match")
	}
}

func TestMatches_WrongOrigin(t *testing.T) {
	deal := mkDeal()
	deal.Origin = "YUL"
	ok, err := service.Matches(mkSignal(), deal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("deal departing from an airport outside the signal's list should not match")
	}
}

func TestMatches_WrongRegion(t *testing.T) {
	deal := mkDeal()
	region := "caribbean"
	deal.Region = &region
	ok, err := service.Matches(mkSignal(), deal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("deal to a region outside the signal's list should not match")
	}
}

// ── Travel window: month granularity, end month inclusive ────────────────

func TestMatches_WindowBounds(t *testing.T) {
	cases := []struct {
		name   string
		depart time.Time
		want   bool
	}{
		{"first day of start month", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"last day of end month", time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), true},
		{"day before window", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"day after window", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		deal := mkDeal()
		deal.DepartDate = c.depart
		ok, err := service.Matches(mkSignal(), deal)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if ok != c.want {
			t.Errorf("%s: Matches = %t, want %t", c.name, ok, c.want)
		}
	}
}

func TestMatches_BadMonthFormat(t *testing.T) {
	sig := mkSignal()
	sig.Config.TravelWindow.StartMonth = "January 2026"
	_, err := service.Matches(sig, mkDeal())
	if err == nil {
		t.Error("unparseable window month should surface an error")
	}
}

// ── Duration bounds ────────────────────────────────────────────────────────

func TestMatches_DurationBounds(t *testing.T) {
	cases := []struct {
		nights int
		want   bool
	}{
		{4, false},
		{5, true},
		{10, true},
		{11, false},
	}
	for _, c := range cases {
		deal := mkDeal()
		deal.DurationNights = c.nights
		ok, err := service.Matches(mkSignal(), deal)
		if err != nil {
			t.Fatalf("nights=%d: unexpected error: %v", c.nights, err)
		}
		if ok != c.want {
			t.Errorf("nights=%d: Matches = %t, want %t", c.nights, ok, c.want)
		}
	}
}

// ── Star rating ────────────────────────────────────────────────────────────

func TestMatches_StarRatingBelowMinimum(t *testing.T) {
	deal := mkDeal()
	star := 3.5
	deal.StarRating = &star
	ok, err := service.Matches(mkSignal(), deal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("deal below the minimum star rating should not match")
	}
}

// ── Strict budget: per person, adults default to 2 ───────────────────────

func TestMatches_StrictBudget(t *testing.T) {
	// target $1500 pp x 2 adults = $3000 total cap
	cases := []struct {
		priceCents int
		want       bool
	}{
		{300000, true},  // exactly at cap
		{300001, false}, // one cent over
		{150000, true},
	}
	for _, c := range cases {
		deal := mkDeal()
		deal.PriceCents = c.priceCents
		ok, err := service.Matches(mkSignal(), deal)
		if err != nil {
			t.Fatalf("price=%d: unexpected error: %v", c.priceCents, err)
		}
		if ok != c.want {
			t.Errorf("price=%d: Matches = %t, want %t", c.priceCents, ok, c.want)
		}
	}
}

func TestMatches_NonStrictBudgetNeverDisqualifies(t *testing.T) {
	sig := mkSignal()
	sig.Config.Budget.Strict = false
	deal := mkDeal()
	deal.PriceCents = 10_000_000
	ok, err := service.Matches(sig, deal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("non-strict budget should never reject a deal")
	}
}

func TestMatches_BudgetDefaultsToTwoAdults(t *testing.T) {
	sig := mkSignal()
	sig.Config.Travellers.Adults = 0
	deal := mkDeal()
	deal.PriceCents = 300000 // cap assuming 2 adults
	ok, err := service.Matches(sig, deal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("unset adults should default to 2 for the budget cap")
	}
}

// ── Permissive unless specified ────────────────────────────────────────────

func TestMatches_MissingDealAttributesNeverDisqualify(t *testing.T) {
	deal := mkDeal()
	deal.Region = nil
	deal.StarRating = nil
	ok, err := service.Matches(mkSignal(), deal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("deal lacking region and star rating should still match")
	}
}

func TestMatches_EmptySignalMatchesEverything(t *testing.T) {
	sig := &models.Signal{ID: "sig-open", Status: models.SignalStatusActive}
	ok, err := service.Matches(sig, mkDeal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("signal with no constraints should match any deal")
	}
}

func TestMatches_WinterSunScenario(t *testing.T) {
	min := 3.0
	sig := &models.Signal{
		ID:                 "sig-ws",
		Name:               "Mexico watch",
		Status:             models.SignalStatusActive,
		DepartureAirports:  []string{"YYZ"},
		DestinationRegions: []string{"mexico"},
		Config: models.SignalConfig{
			TravelWindow: models.TravelWindow{
				StartMonth: "2026-02",
				EndMonth:   "2026-04",
				MinNights:  7,
				MaxNights:  10,
			},
			Preferences: models.Preferences{MinStarRating: &min},
		},
	}

	region := "mexico"
	star := 4.0
	deal := &models.Deal{
		ID:             "deal-ws",
		Origin:         "YYZ",
		Region:         &region,
		DepartDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		DurationNights: 7,
		PriceCents:     90000,
		StarRating:     &star,
	}

	ok, err := service.Matches(sig, deal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("the YYZ to mexico deal should satisfy every predicate")
	}
}

func TestMatches_NilInputs(t *testing.T) {
	if _, err := service.Matches(nil, mkDeal()); err == nil {
		t.Error("nil signal should be an error")
	}
	if _, err := service.Matches(mkSignal(), nil); err == nil {
		t.Error("nil deal should be an error")
	}
}
