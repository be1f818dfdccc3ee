package engine

import (
	"time"

	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
)

func normalizePeriodDays(days int) int {
	if days <= 0 {
		return 1
	}
	return days
}

func periodBounds(now time.Time, days int) overviewdomain.PeriodBounds {
	return overviewdomain.PeriodBounds{
		Start: now.Add(-time.Duration(days) * 24 * time.Hour),
		End:   now,
		Days:  days,
	}
}

func onOrAfter(t, boundary time.Time) bool {
	return !t.Before(boundary)
}
