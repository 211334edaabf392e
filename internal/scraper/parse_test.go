package scraper_test

import (
	"testing"

	"github.com/tripsignal/tripsignal/internal/scraper"
)

const sampleHTML = `
<div class="adModule">
  <h2 class="adModuleHeading--a1b2c">Cancun, Mexico</h2>
  <p class="adModuleSubheading--d3e4f">Sun Resort &amp; Spa</p>
  <div class="adModuleDetailsDays--g5h6i"><span>Feb 10, 2026</span></div>
  <div class="StarRating-module--rating--j7k8l" rating="4.5"></div>
  <span class="adModuleDetailsAmount--m9n0o">$1299<sup>99</sup></span>
  <p>Save up to 35%</p>
  <a href="https://shopping.selloffvacations.com/cgi-bin/handler.cgi?gateway_dep=YYZ&amp;no_hotel=12345">Book</a>
</div>
<div class="adModule">
  <h2 class="adModuleHeading--a1b2c">Varadero, Cuba</h2>
  <p class="adModuleSubheading--d3e4f">Playa Azul</p>
  <div class="adModuleDetailsDays--g5h6i"><span>Mar 3, 2026</span></div>
  <span class="adModuleDetailsAmount--m9n0o">$899<sup>00</sup></span>
</div>
`

func TestExtractListings(t *testing.T) {
	listings := scraper.ExtractListings(sampleHTML)
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2 (price count drives it)", len(listings))
	}

	first := listings[0]
	if first.Destination != "Cancun, Mexico" {
		t.Errorf("destination = %q", first.Destination)
	}
	if first.Hotel != "Sun Resort &amp; Spa" {
		t.Errorf("hotel = %q, raw entities stay until Normalize", first.Hotel)
	}
	if first.DateText != "Feb 10, 2026" {
		t.Errorf("date = %q", first.DateText)
	}
	if first.PriceText != "1299" {
		t.Errorf("price = %q", first.PriceText)
	}
	if first.Discount != "35" {
		t.Errorf("discount = %q", first.Discount)
	}
	if first.RatingText != "4.5" {
		t.Errorf("rating = %q", first.RatingText)
	}
	if first.Link == "" {
		t.Error("link should be extracted")
	}

	// second block is sparser; missing fields degrade to ""
	second := listings[1]
	if second.PriceText != "899" {
		t.Errorf("second price = %q", second.PriceText)
	}
	if second.Discount != "" || second.RatingText != "" || second.Link != "" {
		t.Errorf("missing second-block fields should be empty, got %+v", second)
	}
}

func TestExtractListings_EmptyPage(t *testing.T) {
	if got := scraper.ExtractListings("<html><body>maintenance</body></html>"); len(got) != 0 {
		t.Errorf("got %d listings from an empty page", len(got))
	}
}
