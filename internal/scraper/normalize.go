package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tripsignal/tripsignal/internal/models"
)

const Provider = "selloff"

var (
	reGatewayParam  = regexp.MustCompile(`gateway_dep=([A-Z]+)`)
	reHotelParam    = regexp.MustCompile(`no_hotel=(\d+)`)
	reDateParam     = regexp.MustCompile(`date_dep=(\d+)`)
	reDurationParam = regexp.MustCompile(`duration=([A-Z0-9]+)`)
	reDigits        = regexp.MustCompile(`(\d+)`)
)

var dateFormats = []string{"Jan 2, 2006", "20060102", "January 2, 2006"}

// ParseDepartDate accepts the formats the provider uses across its page
// text and deep-link params.
func ParseDepartDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, fmtStr := range dateFormats {
		if t, err := time.Parse(fmtStr, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDurationNights pulls the night count out of strings like "7DAYS".
// Defaults to 7 when no digits are present.
func ParseDurationNights(s string) int {
	m := reDigits.FindStringSubmatch(s)
	if m == nil {
		return 7
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 7
	}
	return n
}

func cleanURL(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// Normalize turns one raw listing into a deal candidate. The deep link is
// the authoritative source for gateway, hotel id, depart date and duration;
// the page text only fills the display fields.
func Normalize(raw RawListing, fallbackHotelID string) (*models.DealCandidate, error) {
	link := cleanURL(raw.Link)

	gateway := firstGroup(reGatewayParam, link)
	hotelID := firstGroup(reHotelParam, link)
	if hotelID == "" {
		hotelID = fallbackHotelID
	}

	dateText := firstGroup(reDateParam, link)
	if dateText == "" {
		dateText = raw.DateText
	}
	departDate, ok := ParseDepartDate(dateText)
	if !ok {
		return nil, fmt.Errorf("unparseable depart date %q", dateText)
	}

	durationText := firstGroup(reDurationParam, link)
	if durationText == "" {
		durationText = "7DAYS"
	}
	nights := ParseDurationNights(durationText)

	priceDollars, err := strconv.Atoi(raw.PriceText)
	if err != nil || priceDollars <= 0 {
		return nil, fmt.Errorf("unparseable price %q", raw.PriceText)
	}

	discount := 0
	if raw.Discount != "" {
		if v, err := strconv.Atoi(raw.Discount); err == nil {
			discount = v
		}
	}

	var rating *float64
	if raw.RatingText != "" {
		if v, err := strconv.ParseFloat(raw.RatingText, 64); err == nil {
			rating = &v
		}
	}

	destination := strings.TrimSpace(raw.Destination)

	return &models.DealCandidate{
		Provider:         Provider,
		Origin:           gateway,
		DestinationLabel: destination,
		Region:           MapDestinationToRegion(destination),
		HotelName:        strings.TrimSpace(strings.ReplaceAll(raw.Hotel, "&amp;", "&")),
		HotelID:          hotelID,
		DepartDate:       departDate,
		ReturnDate:       departDate.AddDate(0, 0, nights),
		DurationNights:   nights,
		PriceCents:       priceDollars * 100,
		DiscountPct:      discount,
		StarRating:       rating,
		DeeplinkURL:      link,
	}, nil
}
