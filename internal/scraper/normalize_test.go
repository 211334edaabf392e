package scraper_test

import (
	"testing"
	"time"

	"github.com/tripsignal/tripsignal/internal/scraper"
)

// ── ParseDepartDate ────────────────────────────────────────────────────────

func TestParseDepartDate_Formats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"Feb 10, 2026", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
		{"20260210", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
		{"February 10, 2026", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
		{"  Feb 10, 2026  ", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, ok := scraper.ParseDepartDate(c.in)
		if !ok {
			t.Errorf("ParseDepartDate(%q) failed", c.in)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("ParseDepartDate(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseDepartDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2026-02-10"} {
		if _, ok := scraper.ParseDepartDate(in); ok {
			t.Errorf("ParseDepartDate(%q) should fail", in)
		}
	}
}

// ── ParseDurationNights ────────────────────────────────────────────────────

func TestParseDurationNights(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"7DAYS", 7},
		{"14DAYS", 14},
		{"3NIGHTS", 3},
		{"DAYS", 7}, // no digits, default
		{"", 7},
	}
	for _, c := range cases {
		if got := scraper.ParseDurationNights(c.in); got != c.want {
			t.Errorf("ParseDurationNights(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

// ── MapDestinationToRegion ─────────────────────────────────────────────────

func TestMapDestinationToRegion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Cancun, Mexico", "mexico"},
		{"Punta Cana, Dominican Republic", "dominican_republic"},
		{"Varadero, Cuba", "cuba"},
		{"Somewhere, Atlantis", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := scraper.MapDestinationToRegion(c.in); got != c.want {
			t.Errorf("MapDestinationToRegion(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// ── Normalize: deep link is authoritative ────────────────────────────────

const sampleLink = "https://shopping.selloffvacations.com/cgi-bin/handler.cgi?" +
	"gateway_dep=YYZ&amp;no_hotel=12345&amp;date_dep=20260210&amp;duration=7DAYS"

func TestNormalize_FromDeepLink(t *testing.T) {
	raw := scraper.RawListing{
		Destination: "Cancun, Mexico",
		Hotel:       "Sun &amp; Sand Resort",
		DateText:    "Feb 11, 2026", // deep link wins over page text
		PriceText:   "1299",
		Discount:    "35",
		RatingText:  "4.5",
		Link:        sampleLink,
	}

	cand, err := scraper.Normalize(raw, "fallback-1")
	if err != nil {
		t.Fatalf("Normalize returned unexpected error: %v", err)
	}

	if cand.Origin != "YYZ" {
		t.Errorf("origin = %q, want YYZ", cand.Origin)
	}
	if cand.HotelID != "12345" {
		t.Errorf("hotel id = %q, want 12345 from the deep link", cand.HotelID)
	}
	if !cand.DepartDate.Equal(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("depart date = %s, want the deep link's 2026-02-10", cand.DepartDate)
	}
	if cand.DurationNights != 7 {
		t.Errorf("nights = %d, want 7", cand.DurationNights)
	}
	if cand.PriceCents != 129900 {
		t.Errorf("price = %d cents, want 129900", cand.PriceCents)
	}
	if cand.DiscountPct != 35 {
		t.Errorf("discount = %d, want 35", cand.DiscountPct)
	}
	if cand.Region != "mexico" {
		t.Errorf("region = %q, want mexico", cand.Region)
	}
	if cand.HotelName != "Sun & Sand Resort" {
		t.Errorf("hotel name = %q, entities should be unescaped", cand.HotelName)
	}
	if cand.StarRating == nil || *cand.StarRating != 4.5 {
		t.Error("star rating should parse to 4.5")
	}
	if !cand.ReturnDate.Equal(cand.DepartDate.AddDate(0, 0, 7)) {
		t.Errorf("return date = %s, want depart + 7 nights", cand.ReturnDate)
	}
}

func TestNormalize_FallbacksWhenLinkIsBare(t *testing.T) {
	raw := scraper.RawListing{
		Destination: "Punta Cana, Dominican Republic",
		Hotel:       "Playa Grande",
		DateText:    "Mar 3, 2026",
		PriceText:   "899",
		Link:        "https://shopping.selloffvacations.com/cgi-bin/handler.cgi?x=1",
	}

	cand, err := scraper.Normalize(raw, "fallback-2")
	if err != nil {
		t.Fatalf("Normalize returned unexpected error: %v", err)
	}
	if cand.HotelID != "fallback-2" {
		t.Errorf("hotel id = %q, want the fallback", cand.HotelID)
	}
	if !cand.DepartDate.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("depart date = %s, want the page text date", cand.DepartDate)
	}
	if cand.DurationNights != 7 {
		t.Errorf("nights = %d, want the 7 night default", cand.DurationNights)
	}
}

func TestNormalize_BadPrice(t *testing.T) {
	raw := scraper.RawListing{DateText: "Feb 10, 2026", PriceText: "call us"}
	if _, err := scraper.Normalize(raw, ""); err == nil {
		t.Error("unparseable price should be an error")
	}
}

func TestNormalize_BadDate(t *testing.T) {
	raw := scraper.RawListing{DateText: "sometime soon", PriceText: "999"}
	if _, err := scraper.Normalize(raw, ""); err == nil {
		t.Error("unparseable date should be an error")
	}
}

// ── DedupeKey stability ────────────────────────────────────────────────────

func TestNormalize_DedupeKeyStableAcrossPriceChanges(t *testing.T) {
	raw := scraper.RawListing{
		Destination: "Cancun, Mexico",
		Hotel:       "Sun Resort",
		PriceText:   "1299",
		Link:        sampleLink,
	}

	first, err := scraper.Normalize(raw, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw.PriceText = "1099"
	raw.Discount = "40"
	second, err := scraper.Normalize(raw, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.DedupeKey() != second.DedupeKey() {
		t.Errorf("dedupe key changed with price: %q vs %q", first.DedupeKey(), second.DedupeKey())
	}
	if want := "selloff:YYZ:12345:2026-02-10:7"; first.DedupeKey() != want {
		t.Errorf("DedupeKey = %q, want %q", first.DedupeKey(), want)
	}
}
