package cache

import "fmt"

// GET /api/deals
// deals:list:active={active}:limit={limit}
func DealListKey(onlyActive bool, limit int) string {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return fmt.Sprintf("deals:list:active=%t:limit=%d", onlyActive, limit)
}

// GET /api/deals/{id}/history
// deals:history:{deal_id}
func DealHistoryKey(dealID string) string {
	return fmt.Sprintf("deals:history:%s", dealID)
}

// Set of every cached deal key, for invalidation after a pass without SCAN.
func DealKeysSetKey() string {
	return "deals:keys"
}
