package service

import (
	"fmt"
	"time"

	"github.com/tripsignal/tripsignal/internal/models"
)

// Matches evaluates one signal's predicate set against a deal. Predicates
// short-circuit cheapest-first. A constraint the signal omits, or an
// attribute the deal lacks, never disqualifies: permissive unless specified.
//
// A returned error means the signal's config could not be evaluated; the
// caller logs it and treats the signal as no-match without aborting the pass.
func Matches(sig *models.Signal, deal *models.Deal) (bool, error) {
	if sig == nil || deal == nil {
		return false, fmt.Errorf("nil signal or deal")
	}

	// 1. departure airport
	if len(sig.DepartureAirports) > 0 && deal.Origin != "" {
		if !contains(sig.DepartureAirports, deal.Origin) {
			return false, nil
		}
	}

	// 2. destination region
	if len(sig.DestinationRegions) > 0 && deal.Region != nil {
		if !contains(sig.DestinationRegions, *deal.Region) {
			return false, nil
		}
	}

	// 3. travel window (month granularity, end month inclusive)
	window := sig.Config.TravelWindow
	if window.StartMonth != "" && window.EndMonth != "" {
		start, end, err := expandMonthWindow(window.StartMonth, window.EndMonth)
		if err != nil {
			return false, err
		}
		if deal.DepartDate.Before(start) || deal.DepartDate.After(end) {
			return false, nil
		}
	}

	// 4. duration bounds
	if window.MinNights > 0 && deal.DurationNights < window.MinNights {
		return false, nil
	}
	if window.MaxNights > 0 && deal.DurationNights > window.MaxNights {
		return false, nil
	}

	// 5. minimum star rating
	minStar := sig.Config.Preferences.MinStarRating
	if minStar != nil && deal.StarRating != nil {
		if *deal.StarRating < *minStar {
			return false, nil
		}
	}

	// 6. strict budget
	budget := sig.Config.Budget
	if budget != nil && budget.Strict && budget.TargetPP > 0 {
		adults := sig.Config.Travellers.Adults
		if adults <= 0 {
			adults = 2
		}
		if deal.PriceCents > budget.TargetPP*adults*100 {
			return false, nil
		}
	}

	return true, nil
}

// expandMonthWindow turns a YYYY-MM..YYYY-MM window into full calendar
// month bounds: first day of the start month through the last day of the
// end month.
func expandMonthWindow(startMonth, endMonth string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", startMonth)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start month %q: %w", startMonth, err)
	}
	endFirst, err := time.Parse("2006-01", endMonth)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end month %q: %w", endMonth, err)
	}

	end := endFirst.AddDate(0, 1, -1)
	return start, end, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
