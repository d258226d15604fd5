package digest

import "time"

// ParseMonth resolves a YYYY-MM string to the UTC start of that month plus
// the YYYYMM period key. A malformed month falls back to the current month
// rather than failing, so a bad flag still produces a digest.
func ParseMonth(month string, now time.Time) (time.Time, string, bool) {
	if t, err := time.Parse("2006-01", month); err == nil {
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("200601"), true
	}
	start := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.Format("200601"), false
}

// MonthsOld counts whole calendar months between the target month and now.
func MonthsOld(start, now time.Time) int {
	now = now.UTC()
	return (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
}

// AdaptiveMinCitations scales the citation floor with how much time papers
// have had to accumulate citations. Only the current month asks for nothing;
// a future month lands in the <= 3 band like any other non-current month.
func AdaptiveMinCitations(monthsOld int) int {
	switch {
	case monthsOld == 0:
		return 0
	case monthsOld == 1:
		return 1
	case monthsOld <= 3:
		return 2
	case monthsOld <= 6:
		return 3
	default:
		return 5
	}
}
