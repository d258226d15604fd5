package digest

import (
	"testing"
	"time"
)

func TestParseMonthValid(t *testing.T) {
	now := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	start, period, ok := ParseMonth("2025-06", now)
	if !ok {
		t.Fatal("expected parse success")
	}
	if period != "202506" {
		t.Fatalf("period = %q", period)
	}
	if !start.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
}

func TestParseMonthFallsBackToCurrentMonth(t *testing.T) {
	now := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	for _, bad := range []string{"garbage", "2025/06", "2025-13", ""} {
		start, period, ok := ParseMonth(bad, now)
		if ok {
			t.Fatalf("ParseMonth(%q) reported success", bad)
		}
		if period != "202508" || start.Day() != 1 {
			t.Fatalf("ParseMonth(%q) = %v, %q", bad, start, period)
		}
	}
}

func TestMonthsOld(t *testing.T) {
	now := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		month string
		want  int
	}{
		{"2025-08", 0},
		{"2025-07", 1},
		{"2025-06", 2},
		{"2025-02", 6},
		{"2024-08", 12},
	} {
		start, _, _ := ParseMonth(tc.month, now)
		if got := MonthsOld(start, now); got != tc.want {
			t.Errorf("MonthsOld(%s) = %d, want %d", tc.month, got, tc.want)
		}
	}
}

func TestAdaptiveMinCitations(t *testing.T) {
	for _, tc := range []struct{ monthsOld, want int }{
		{-2, 2}, // future month takes the <= 3 band, not the current-month floor
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{6, 3},
		{7, 5},
		{24, 5},
	} {
		if got := AdaptiveMinCitations(tc.monthsOld); got != tc.want {
			t.Errorf("AdaptiveMinCitations(%d) = %d, want %d", tc.monthsOld, got, tc.want)
		}
	}
}
