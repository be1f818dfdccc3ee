package engine

import (
	"time"

	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

// ComputeSubscriberStats counts current states and period transitions in a single pass.
func ComputeSubscriberStats(all []subscriptiondomain.Subscription, periodDays int, now time.Time) overviewdomain.SubscriberStats {
	periodDays = normalizePeriodDays(periodDays)
	bounds := periodBounds(now, periodDays)

	stats := overviewdomain.SubscriberStats{Period: bounds}
	for _, sub := range all {
		switch sub.Status {
		case subscriptiondomain.StatusActive:
			stats.TotalActive++
		case subscriptiondomain.StatusPastDue:
			stats.TotalActive++
			stats.PastDue++
		case subscriptiondomain.StatusTrialing:
			stats.Trialing++
		}

		if onOrAfter(sub.CreatedAt, bounds.Start) && countsAsNew(sub.Status) {
			stats.NewThisPeriod++
		}
		if sub.CanceledAt != nil && onOrAfter(*sub.CanceledAt, bounds.Start) {
			stats.ChurnedThisPeriod++
		}
	}
	stats.NetChange = stats.NewThisPeriod - stats.ChurnedThisPeriod
	return stats
}

func countsAsNew(status subscriptiondomain.Status) bool {
	switch status {
	case subscriptiondomain.StatusActive, subscriptiondomain.StatusTrialing, subscriptiondomain.StatusPastDue:
		return true
	default:
		return false
	}
}
