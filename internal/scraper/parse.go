package scraper

import "regexp"

// RawListing is one provider ad block as extracted from the page, all
// fields still in their on-page text form.
type RawListing struct {
	Destination string
	Hotel       string
	DateText    string
	PriceText   string
	Discount    string
	RatingText  string
	Link        string
}

var (
	reDestinations = regexp.MustCompile(`adModuleHeading--\w+">([^<]+)</h2>`)
	reHotels       = regexp.MustCompile(`adModuleSubheading--\w+">([^<]+)</p>`)
	reDates        = regexp.MustCompile(`adModuleDetailsDays--\w+"><span>([^<]+)</span>`)
	rePrices       = regexp.MustCompile(`adModuleDetailsAmount--\w+">\$?(\d+)<`)
	reDiscounts    = regexp.MustCompile(`Save up to (\d+)%`)
	reLinks        = regexp.MustCompile(`href="(https://shopping\.selloffvacations\.com/cgi-bin/handler\.cgi\?[^"]+)"`)
	reStarRatings  = regexp.MustCompile(`StarRating-module--rating--\w+" rating="([\d.]+)"`)
)

func findAll(re *regexp.Regexp, html string) []string {
	matches := re.FindAllStringSubmatch(html, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func pick(vals []string, i int) string {
	if i < len(vals) {
		return vals[i]
	}
	return ""
}

// ExtractListings pulls the ad blocks out of a listing page. The page lays
// out matching field lists; the price list drives the count and the other
// lists are aligned by index, missing entries degrading to "".
func ExtractListings(html string) []RawListing {
	destinations := findAll(reDestinations, html)
	hotels := findAll(reHotels, html)
	dates := findAll(reDates, html)
	prices := findAll(rePrices, html)
	discounts := findAll(reDiscounts, html)
	links := findAll(reLinks, html)
	ratings := findAll(reStarRatings, html)

	listings := make([]RawListing, 0, len(prices))
	for i := range prices {
		listings = append(listings, RawListing{
			Destination: pick(destinations, i),
			Hotel:       pick(hotels, i),
			DateText:    pick(dates, i),
			PriceText:   prices[i],
			Discount:    pick(discounts, i),
			RatingText:  pick(ratings, i),
			Link:        pick(links, i),
		})
	}

	return listings
}
