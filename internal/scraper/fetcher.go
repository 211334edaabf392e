package scraper

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tripsignal/tripsignal/internal/models"
)

const defaultBaseURL = "https://www.selloffvacations.com"

// Fetcher pulls one provider listing page and normalizes it into deal
// candidates. Network failures degrade to an empty result, never a pass
// failure.
type Fetcher struct {
	client *resty.Client
	logger *log.Logger
}

func NewFetcher(baseURL string, logger *log.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = log.Default()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36").
		SetHeader("Accept-Language", "en-CA,en;q=0.9")

	return &Fetcher{client: client, logger: logger}
}

// PagePath builds a category/gateway listing URL path.
func PagePath(category, citySlug string) string {
	return fmt.Sprintf("/en/vacation-packages/%s/from-%s", category, citySlug)
}

// Fetch returns the normalized candidates from one listing page. On fetch
// failure it logs and returns an empty slice: no listings found.
func (f *Fetcher) Fetch(ctx context.Context, category, citySlug string) []*models.DealCandidate {
	path := PagePath(category, citySlug)

	resp, err := f.client.R().SetContext(ctx).Get(path)
	if err != nil {
		f.logger.Printf("[scraper] fetch %s failed: %v", path, err)
		return nil
	}
	if resp.IsError() {
		f.logger.Printf("[scraper] fetch %s returned status %d", path, resp.StatusCode())
		return nil
	}

	listings := ExtractListings(string(resp.Body()))

	candidates := make([]*models.DealCandidate, 0, len(listings))
	for i, raw := range listings {
		cand, err := Normalize(raw, strconv.Itoa(i))
		if err != nil {
			f.logger.Printf("[scraper] skip listing %d on %s: %v", i, path, err)
			continue
		}
		candidates = append(candidates, cand)
	}

	return candidates
}
