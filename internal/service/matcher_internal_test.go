package service

import (
	"testing"
	"time"
)

// ── expandMonthWindow ──────────────────────────────────────────────────────

func TestExpandMonthWindow(t *testing.T) {
	start, end, err := expandMonthWindow("2026-01", "2026-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %s, want 2026-01-01", start)
	}
	if !end.Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %s, want 2026-02-28", end)
	}
}

func TestExpandMonthWindow_SingleMonth(t *testing.T) {
	start, end, err := expandMonthWindow("2026-04", "2026-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Month() != time.April || end.Day() != 30 {
		t.Errorf("window = %s..%s, want the whole of April", start, end)
	}
}
