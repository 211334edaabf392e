package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tripsignal/tripsignal/internal/cache"
	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/repository"
	"github.com/tripsignal/tripsignal/internal/service"
)

type DealHandler struct {
	deals *repository.DealRepository
	cache cache.Cache
	ttl   time.Duration
}

func NewDealHandler(deals *repository.DealRepository, c cache.Cache, ttl time.Duration) *DealHandler {
	return &DealHandler{
		deals: deals,
		cache: c,
		ttl:   ttl,
	}
}

// GET /api/deals?active=&limit=
// 200: { "deals": [...], "count": n }
// 400: invalid params
// 500: internal error
func (h *DealHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	onlyActive := true
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "active must be a boolean")
			return
		}
		onlyActive = v
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	// 1) cache lookup
	var cacheKey string
	if h.cache != nil {
		cacheKey = cache.DealListKey(onlyActive, limit)
		if b, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
			metrics.IncRedisHit()
			w.Header().Set("X-Cache", "HIT")
			writeRawJSON(w, http.StatusOK, b)
			return
		}
	}

	// 2) DB
	deals, err := h.deals.List(r.Context(), onlyActive, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]map[string]any, 0, len(deals))
	for _, d := range deals {
		out = append(out, dealResponse(d))
	}
	resp := map[string]any{
		"deals": out,
		"count": len(out),
	}

	b, _ := json.Marshal(resp)

	// 3) cache store + remember key in set for invalidation after a pass
	if h.cache != nil {
		_ = h.cache.Set(r.Context(), cacheKey, b, h.ttl)

		setKey := cache.DealKeysSetKey()
		_ = h.cache.SAdd(r.Context(), setKey, cacheKey)
		_ = h.cache.Expire(r.Context(), setKey, h.ttl)
	}

	metrics.IncRedisMiss()
	w.Header().Set("X-Cache", "MISS")
	writeRawJSON(w, http.StatusOK, b)
}

// GET /api/deals/{deal_id}/history
// 200: { "deal_id": "...", "points": [...], "trend": "down" }
// 404: unknown deal
// 500: internal error
func (h *DealHandler) GetDealHistory(w http.ResponseWriter, r *http.Request) {
	dealID := strings.TrimSpace(chi.URLParam(r, "deal_id"))
	if dealID == "" {
		writeError(w, http.StatusBadRequest, "deal_id is required")
		return
	}

	var cacheKey string
	if h.cache != nil {
		cacheKey = cache.DealHistoryKey(dealID)
		if b, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
			metrics.IncRedisHit()
			w.Header().Set("X-Cache", "HIT")
			writeRawJSON(w, http.StatusOK, b)
			return
		}
	}

	if _, err := h.deals.Get(r.Context(), dealID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "deal not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	points, err := h.deals.RecentPrices(r.Context(), dealID, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]map[string]any, 0, len(points))
	for _, p := range points {
		out = append(out, map[string]any{
			"price_cents": p.PriceCents,
			"recorded_at": p.RecordedAt,
		})
	}
	resp := map[string]any{
		"deal_id": dealID,
		"points":  out,
		"trend":   string(service.PriceTrend(points)),
	}

	b, _ := json.Marshal(resp)

	if h.cache != nil {
		_ = h.cache.Set(r.Context(), cacheKey, b, h.ttl)

		setKey := cache.DealKeysSetKey()
		_ = h.cache.SAdd(r.Context(), setKey, cacheKey)
		_ = h.cache.Expire(r.Context(), setKey, h.ttl)
	}

	metrics.IncRedisMiss()
	w.Header().Set("X-Cache", "MISS")
	writeRawJSON(w, http.StatusOK, b)
}

func dealResponse(d *models.Deal) map[string]any {
	m := map[string]any{
		"id":              d.ID,
		"provider":        d.Provider,
		"origin":          d.Origin,
		"destination":     d.Destination,
		"hotel_name":      d.HotelName,
		"depart_date":     d.DepartDate.Format("2006-01-02"),
		"duration_nights": d.DurationNights,
		"price_cents":     d.PriceCents,
		"currency":        d.Currency,
		"discount_pct":    d.DiscountPct,
		"is_active":       d.IsActive,
		"found_at":        d.FoundAt,
		"updated_at":      d.UpdatedAt,
	}
	if d.Region != nil {
		m["region"] = *d.Region
	}
	if d.StarRating != nil {
		m["star_rating"] = *d.StarRating
	}
	if d.ReturnDate != nil {
		m["return_date"] = d.ReturnDate.Format("2006-01-02")
	}
	if d.DeeplinkURL != nil {
		m["deeplink_url"] = *d.DeeplinkURL
	}
	return m
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeRawJSON(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
